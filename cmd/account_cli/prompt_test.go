package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"weatherguard/internal/service"
)

func TestTerminalPicker(t *testing.T) {
	var out bytes.Buffer
	p := terminalPicker{reader: bufio.NewReader(strings.NewReader("\n/tmp/me.png\nfile:///tmp/x.jpg\n")), out: &out}
	ctx := context.Background()

	if _, err := p.PickImage(ctx, service.AvatarConstraints); !errors.Is(err, service.ErrPickCancelled) {
		t.Fatalf("expected cancel on empty answer, got %v", err)
	}
	picked, err := p.PickImage(ctx, service.AvatarConstraints)
	if err != nil || picked.URI != "file:///tmp/me.png" {
		t.Fatalf("unexpected pick: %+v, %v", picked, err)
	}
	picked, err = p.PickImage(ctx, service.ImageConstraints{})
	if err != nil || picked.URI != "file:///tmp/x.jpg" {
		t.Fatalf("expected uri passed through, got %+v, %v", picked, err)
	}
	if !strings.Contains(out.String(), "1:1") {
		t.Fatalf("expected crop hint in output, got %q", out.String())
	}
}

func TestTerminalConfirmer(t *testing.T) {
	var out bytes.Buffer
	c := terminalConfirmer{reader: bufio.NewReader(strings.NewReader("y\n\nYES\nno\n")), out: &out}
	want := []bool{true, false, true, false}
	for i, w := range want {
		got, err := c.Confirm(context.Background(), "Confirm Deletion", "Sure?")
		if err != nil || got != w {
			t.Fatalf("answer %d: got %v, %v; want %v", i, got, err, w)
		}
	}
	if !strings.Contains(out.String(), "Confirm Deletion") {
		t.Fatalf("expected prompt title printed")
	}
}

func TestReportError(t *testing.T) {
	var out bytes.Buffer
	reportError(&out, &service.ValidationError{Message: "Please enter both email and password."})
	if out.String() != "[Error] Please enter both email and password.\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	reportError(&out, errors.New("boom"))
	if out.String() != "error: boom\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
