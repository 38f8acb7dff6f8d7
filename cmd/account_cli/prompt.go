package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"weatherguard/internal/service"
)

func readLine(reader *bufio.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// terminalPicker asks for an image path. An empty answer cancels.
type terminalPicker struct {
	reader *bufio.Reader
	out    io.Writer
}

func (p terminalPicker) PickImage(_ context.Context, c service.ImageConstraints) (service.PickedImage, error) {
	if c.AllowsEditing && c.AspectX > 0 && c.AspectY > 0 {
		fmt.Fprintf(p.out, "(the image will be cropped to %d:%d)\n", c.AspectX, c.AspectY)
	}
	path := readLine(p.reader, p.out, "Image path (.jpg/.png, empty to cancel): ")
	if path == "" {
		return service.PickedImage{}, service.ErrPickCancelled
	}
	if service.IsLocalURI(path) {
		return service.PickedImage{URI: path}, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return service.PickedImage{}, err
	}
	return service.PickedImage{URI: "file://" + filepath.ToSlash(abs)}, nil
}

// terminalConfirmer blocks on a y/N answer.
type terminalConfirmer struct {
	reader *bufio.Reader
	out    io.Writer
}

func (c terminalConfirmer) Confirm(_ context.Context, title, message string) (bool, error) {
	fmt.Fprintf(c.out, "%s\n%s\n", title, message)
	answer := strings.ToLower(readLine(c.reader, c.out, "[y/N]: "))
	return answer == "y" || answer == "yes", nil
}

func printNotice(out io.Writer, n service.Notice) {
	fmt.Fprintf(out, "[%s] %s\n", n.Title, n.Message)
}

// reportError prints the notice for err, or the raw error when it has none.
func reportError(out io.Writer, err error) {
	if notice, ok := service.NoticeFor(err); ok {
		printNotice(out, notice)
		return
	}
	fmt.Fprintf(out, "error: %v\n", err)
}
