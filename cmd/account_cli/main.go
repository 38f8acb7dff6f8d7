package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"weatherguard/internal/cache"
	"weatherguard/internal/config"
	"weatherguard/internal/db"
	"weatherguard/internal/domain"
	"weatherguard/internal/email"
	"weatherguard/internal/repository"
	"weatherguard/internal/service"
	"weatherguard/internal/storage"
)

type app struct {
	reader   *bufio.Reader
	out      io.Writer
	logger   *zap.Logger
	gate     *service.SessionGate
	signup   *service.Signup
	tokens   *service.JWTService
	display  cache.Provider
	deps     service.ProfileEditorDeps
}

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal(err)
	}

	blobs, err := storage.NewFileBlobStore(cfg.BlobDir, cfg.BlobPublicBaseURL)
	if err != nil {
		log.Fatal(err)
	}

	identity := service.NewPasswordIdentityProvider(logger, repository.NewPgUserRepository(pool))
	tokens := service.NewJWTService(service.JWTConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		Identities: identity,
	})
	profiles := repository.NewPgProfileRepository(pool)
	display := cache.NewMemoryProvider()
	mailer := email.NewDisabledSender("email disabled in cli")
	a := &app{
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		logger:   logger,
		gate:     service.NewSessionGate(logger, identity, tokens, service.NewLoginRateLimiter(cfg.LoginWindow(), cfg.LoginMaxAttempts)),
		signup:   service.NewSignup(logger, identity, profiles, display, mailer),
		tokens:   tokens,
		display:  display,
		deps: service.ProfileEditorDeps{
			Profiles:         profiles,
			Identity:         identity,
			Blobs:            blobs,
			Images:           service.LocalFileSource{MaxBytes: cfg.MaxUploadBytes},
			Mailer:           mailer,
			Sessions:         tokens,
			DefaultAvatarURL: cfg.DefaultAvatarURL,
			AvatarSize:       cfg.AvatarSize,
			AvatarQuality:    cfg.AvatarQuality,
		},
	}

	for {
		session, ok := a.loginScreen(ctx)
		if !ok {
			return
		}
		a.menuLoop(ctx, session)
	}
}

func (a *app) loginScreen(ctx context.Context) (domain.Session, bool) {
	for {
		fmt.Fprintln(a.out, "\n===== WeatherGuard =====")
		fmt.Fprintln(a.out, "[1] Login")
		fmt.Fprintln(a.out, "[2] Sign up")
		fmt.Fprintln(a.out, "[3] Quit")
		switch readLine(a.reader, a.out, "Select an option: ") {
		case "1":
			emailAddr := readLine(a.reader, a.out, "Email: ")
			password := readLine(a.reader, a.out, "Password: ")
			res, err := a.gate.Authenticate(ctx, emailAddr, password)
			if err != nil {
				reportError(a.out, err)
				continue
			}
			printNotice(a.out, res.Outcome.Notice)
			return res.Session, true
		case "2":
			emailAddr := readLine(a.reader, a.out, "Email: ")
			password := readLine(a.reader, a.out, "Password (min 8 chars): ")
			name := readLine(a.reader, a.out, "Display name: ")
			if _, err := a.signup.Register(ctx, service.RegisterInput{Email: emailAddr, Password: password, DisplayName: name}); err != nil {
				fmt.Fprintf(a.out, "could not sign up: %v\n", err)
				continue
			}
			fmt.Fprintln(a.out, "Account created. You can log in now.")
		case "3":
			return domain.Session{}, false
		default:
			fmt.Fprintln(a.out, "Invalid option.")
		}
	}
}

func (a *app) menuLoop(ctx context.Context, session domain.Session) {
	shell := service.NewNavigationShell(a.logger, session, a.display.ForUser(session.UserID), a.tokens)
	for {
		view := shell.Focus(ctx)
		fmt.Fprintf(a.out, "\n--- %s (%s) ---\n", view.Username, view.ProfileImage)
		for i, item := range view.Items {
			fmt.Fprintf(a.out, "[%d] %s\n", i+1, item.Label)
		}
		choice := readLine(a.reader, a.out, "Select an option: ")
		route := ""
		for i, item := range view.Items {
			if choice == fmt.Sprint(i+1) || strings.EqualFold(choice, item.Route) {
				route = item.Route
			}
		}

		screen, err := shell.Navigate(ctx, route)
		if err != nil {
			fmt.Fprintln(a.out, "Invalid option.")
			continue
		}
		switch screen {
		case service.ScreenHomepage:
			fmt.Fprintf(a.out, "Welcome home, %s.\n", view.Username)
		case service.ScreenSettings:
			if deleted := a.accountScreen(ctx, session); deleted {
				return
			}
		case service.ScreenOpening:
			fmt.Fprintln(a.out, "Logged out.")
			return
		}
	}
}

// accountScreen reports true when the account was deleted.
func (a *app) accountScreen(ctx context.Context, session domain.Session) bool {
	deps := a.deps
	deps.Picker = terminalPicker{reader: a.reader, out: a.out}
	deps.Display = a.display.ForUser(session.UserID)
	editor := service.NewProfileEditor(a.logger, session, deps)
	if err := editor.LoadProfile(ctx); err != nil {
		a.logger.Debug("profile shown with placeholders", zap.Error(err))
	}

	for {
		v := editor.View()
		fmt.Fprintf(a.out, "\n--- Account (%s) ---\n", v.State)
		fmt.Fprintf(a.out, "Name:      %s\nPhone:     %s\nBirthdate: %s\nAvatar:    %s\n", v.DisplayName, v.PhoneNumber, v.Birthdate, v.AvatarURL)
		if editor.State() == service.StateEditing {
			fmt.Fprintln(a.out, "[1] Change fields  [2] Change avatar  [3] Save  [4] Delete account  [5] Back")
		} else {
			fmt.Fprintln(a.out, "[1] Edit  [2] Change avatar  [4] Delete account  [5] Back")
		}

		switch readLine(a.reader, a.out, "Select an option: ") {
		case "1":
			editor.BeginEdit()
			a.stageFields(editor)
		case "2":
			out, err := editor.PickAvatar(ctx)
			if errors.Is(err, service.ErrPickCancelled) {
				continue
			}
			if err != nil {
				reportError(a.out, err)
				continue
			}
			printNotice(a.out, out.Notice)
		case "3":
			out, err := editor.SaveChanges(ctx)
			if err != nil {
				reportError(a.out, err)
				continue
			}
			printNotice(a.out, out.Notice)
		case "4":
			out, err := editor.DeleteAccount(ctx, terminalConfirmer{reader: a.reader, out: a.out})
			if errors.Is(err, service.ErrDeletionCancelled) {
				continue
			}
			if err != nil {
				reportError(a.out, err)
				continue
			}
			printNotice(a.out, out.Notice)
			return true
		case "5":
			return false
		default:
			fmt.Fprintln(a.out, "Invalid option.")
		}
	}
}

// stageFields reads each field; an empty answer keeps the current value and
// "-" clears it.
func (a *app) stageFields(editor *service.ProfileEditor) {
	field := func(label, current string) *string {
		v := readLine(a.reader, a.out, fmt.Sprintf("%s [%s]: ", label, current))
		switch v {
		case "":
			return nil
		case "-":
			empty := ""
			return &empty
		default:
			return &v
		}
	}
	view := editor.View()
	_ = editor.Stage(service.ProfileEdits{
		DisplayName: field("Name", view.DisplayName),
		PhoneNumber: field("Phone", view.PhoneNumber),
		Birthdate:   field("Birthdate", view.Birthdate),
	})
}
