package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"weatherguard/internal/cache"
	"weatherguard/internal/domain"
	"weatherguard/internal/email"
	"weatherguard/internal/repository"
	"weatherguard/internal/storage"
)

// RouteLogin is the unauthenticated entry screen.
const RouteLogin = "login"

const (
	deleteConfirmTitle   = "Confirm Deletion"
	deleteConfirmMessage = "Are you sure you want to delete your account? This action cannot be undone."
)

type EditorState int

const (
	StateViewing EditorState = iota
	StateEditing
)

func (s EditorState) String() string {
	switch s {
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// ProfileView is what the account screen renders.
type ProfileView struct {
	DisplayName string `json:"display_name"`
	PhoneNumber string `json:"phone_number"`
	Birthdate   string `json:"birthdate"`
	AvatarURL   string `json:"avatar_url"`
	State       string `json:"state"`
}

// ProfileEdits holds staged field changes. Nil fields are left as they are.
type ProfileEdits struct {
	DisplayName *string
	PhoneNumber *string
	Birthdate   *string
	AvatarRef   *string
}

type ProfileEditorDeps struct {
	Profiles repository.ProfileRepository
	Identity IdentityProvider
	Blobs    storage.BlobStore
	Images   ImageSource
	Picker   MediaPicker
	Display  cache.DisplayCache
	Mailer   email.Sender
	Sessions SessionRevoker

	DefaultAvatarURL string
	AvatarSize       int
	AvatarQuality    int
}

// ProfileEditor is the state of one account screen. It is owned by a single
// caller and is not safe for concurrent use.
type ProfileEditor struct {
	logger  *zap.Logger
	session domain.Session
	deps    ProfileEditorDeps

	state       EditorState
	displayName string
	phoneNumber string
	birthdate   string
	avatar      string
}

func NewProfileEditor(logger *zap.Logger, session domain.Session, deps ProfileEditorDeps) *ProfileEditor {
	if deps.DefaultAvatarURL == "" {
		deps.DefaultAvatarURL = "default_avatar.png"
	}
	return &ProfileEditor{
		logger:      logger,
		session:     session,
		deps:        deps,
		state:       StateViewing,
		displayName: domain.PlaceholderDisplayName,
		phoneNumber: domain.PlaceholderPhoneNumber,
		birthdate:   domain.PlaceholderBirthdate,
		avatar:      deps.DefaultAvatarURL,
	}
}

func (e *ProfileEditor) State() EditorState {
	return e.state
}

func (e *ProfileEditor) View() ProfileView {
	return ProfileView{
		DisplayName: e.displayName,
		PhoneNumber: e.phoneNumber,
		Birthdate:   e.birthdate,
		AvatarURL:   e.avatar,
		State:       e.state.String(),
	}
}

// LoadProfile fills the screen from the stored record. Missing fields keep
// their placeholders. A failed fetch is logged and returned as *SilentError
// with the placeholders still in place.
func (e *ProfileEditor) LoadProfile(ctx context.Context) error {
	if !e.session.Authenticated() {
		return ErrNotAuthenticated
	}
	if e.deps.Profiles == nil {
		return errors.New("profile editor not configured")
	}

	profile, err := e.deps.Profiles.Get(ctx, e.session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		e.logger.Warn("load profile", zap.String("user_id", e.session.UserID), zap.Error(err))
		return &SilentError{Op: "load profile", Err: err}
	}

	e.displayName = orDefault(profile.DisplayName, domain.PlaceholderDisplayName)
	e.phoneNumber = orDefault(profile.PhoneNumber, domain.PlaceholderPhoneNumber)
	e.birthdate = orDefault(profile.Birthdate, domain.PlaceholderBirthdate)
	e.avatar = orDefault(profile.AvatarURL, e.deps.DefaultAvatarURL)
	return nil
}

func (e *ProfileEditor) BeginEdit() {
	e.state = StateEditing
}

// Stage applies in-memory edits. Nothing is persisted until SaveChanges.
func (e *ProfileEditor) Stage(edits ProfileEdits) error {
	if e.state != StateEditing {
		return ErrNotEditing
	}
	if edits.DisplayName != nil {
		e.displayName = *edits.DisplayName
	}
	if edits.PhoneNumber != nil {
		e.phoneNumber = *edits.PhoneNumber
	}
	if edits.Birthdate != nil {
		e.birthdate = *edits.Birthdate
	}
	if edits.AvatarRef != nil {
		e.avatar = *edits.AvatarRef
	}
	return nil
}

// PickAvatar asks the picker for an image, uploads it and stores the durable
// URL on the record. It works in both states.
func (e *ProfileEditor) PickAvatar(ctx context.Context) (Outcome, error) {
	if !e.session.Authenticated() {
		return Outcome{}, ErrNotAuthenticated
	}
	if e.deps.Picker == nil {
		return Outcome{}, ErrNoPicker
	}

	picked, err := e.deps.Picker.PickImage(ctx, AvatarConstraints)
	if err != nil {
		if errors.Is(err, ErrPickCancelled) {
			return Outcome{}, ErrPickCancelled
		}
		return Outcome{}, e.avatarFailure(err)
	}

	url, err := e.uploadAvatar(ctx, picked.URI)
	if err != nil {
		return Outcome{}, e.avatarFailure(err)
	}
	if err := e.deps.Profiles.MergeWrite(ctx, e.session.UserID, domain.ProfileFields{AvatarURL: &url}); err != nil {
		return Outcome{}, e.avatarFailure(err)
	}

	e.avatar = url
	e.refreshDisplay(ctx, map[string]string{cache.KeyProfileImage: url})
	e.logger.Info("avatar updated", zap.String("user_id", e.session.UserID))
	return Outcome{Notice: Notice{Title: "Success", Message: "Profile image updated successfully!"}}, nil
}

// SaveChanges persists the four fields with one merge-write. A local avatar
// reference is uploaded first. Empty fields are written as their placeholder
// text. On failure the editor stays in Editing.
func (e *ProfileEditor) SaveChanges(ctx context.Context) (Outcome, error) {
	if e.state != StateEditing {
		return Outcome{}, ErrNotEditing
	}
	if !e.session.Authenticated() {
		return Outcome{}, ErrNotAuthenticated
	}

	avatar := orDefault(e.avatar, e.deps.DefaultAvatarURL)
	if IsLocalURI(avatar) {
		url, err := e.uploadAvatar(ctx, avatar)
		if err != nil {
			return Outcome{}, e.saveFailure(err)
		}
		avatar = url
	}

	displayName := orDefault(e.displayName, domain.PlaceholderDisplayName)
	phoneNumber := orDefault(e.phoneNumber, domain.PlaceholderPhoneNumber)
	birthdate := orDefault(e.birthdate, domain.PlaceholderBirthdate)
	fields := domain.ProfileFields{
		DisplayName: &displayName,
		PhoneNumber: &phoneNumber,
		Birthdate:   &birthdate,
		AvatarURL:   &avatar,
	}
	if err := e.deps.Profiles.MergeWrite(ctx, e.session.UserID, fields); err != nil {
		return Outcome{}, e.saveFailure(err)
	}

	e.displayName = displayName
	e.phoneNumber = phoneNumber
	e.birthdate = birthdate
	e.avatar = avatar
	e.state = StateViewing
	e.refreshDisplay(ctx, map[string]string{
		cache.KeyUsername:     displayName,
		cache.KeyProfileImage: avatar,
	})
	e.logger.Info("profile saved", zap.String("user_id", e.session.UserID))
	return Outcome{Notice: Notice{Title: "Success", Message: "Profile updated successfully!"}}, nil
}

// DeleteAccount removes the profile record and then the identity, after the
// user confirms. If the identity cannot be deleted the record is written back
// from a snapshot taken before deletion. Once the identity is gone every
// session of the user is ended.
func (e *ProfileEditor) DeleteAccount(ctx context.Context, confirmer Confirmer) (Outcome, error) {
	if !e.session.Authenticated() {
		return Outcome{}, ErrNotAuthenticated
	}
	if confirmer == nil {
		return Outcome{}, ErrDeletionCancelled
	}
	ok, err := confirmer.Confirm(ctx, deleteConfirmTitle, deleteConfirmMessage)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, ErrDeletionCancelled
	}

	userID := e.session.UserID
	snapshot, err := e.deps.Profiles.Get(ctx, userID)
	hasRecord := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Outcome{}, e.deleteFailure(err)
	}

	if err := e.deps.Profiles.Delete(ctx, userID); err != nil {
		return Outcome{}, e.deleteFailure(err)
	}
	if err := e.deps.Identity.DeleteIdentity(ctx, userID); err != nil {
		if hasRecord {
			if restoreErr := e.deps.Profiles.MergeWrite(ctx, userID, snapshot.Fields()); restoreErr != nil {
				e.logger.Error("restore profile after failed identity deletion",
					zap.String("user_id", userID), zap.Error(restoreErr))
			}
		}
		return Outcome{}, e.deleteFailure(err)
	}

	e.logger.Info("account deleted", zap.String("user_id", userID))
	if e.deps.Sessions != nil {
		if err := e.deps.Sessions.EndSessions(ctx, userID); err != nil {
			e.logger.Warn("end sessions after account deletion", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if e.deps.Mailer != nil && e.session.Email != "" {
		if err := e.deps.Mailer.SendAccountDeleted(ctx, e.session.Email, time.Now().UTC()); err != nil {
			e.logger.Warn("send account deleted email", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return Outcome{
		Notice: Notice{Title: "Success", Message: "Account deleted successfully!"},
		Route:  RouteLogin,
	}, nil
}

func (e *ProfileEditor) uploadAvatar(ctx context.Context, uri string) (string, error) {
	if e.deps.Images == nil || e.deps.Blobs == nil {
		return "", errors.New("avatar upload not configured")
	}
	raw, err := e.deps.Images.Fetch(ctx, uri)
	if err != nil {
		return "", err
	}
	data, err := storage.NormalizeAvatar(raw, e.deps.AvatarSize, e.deps.AvatarQuality)
	if err != nil {
		return "", err
	}
	key := storage.AvatarKey(e.session.UserID)
	if err := e.deps.Blobs.Put(ctx, key, data); err != nil {
		return "", err
	}
	return e.deps.Blobs.PublicURL(ctx, key)
}

func (e *ProfileEditor) refreshDisplay(ctx context.Context, values map[string]string) {
	if e.deps.Display == nil {
		return
	}
	for key, value := range values {
		if err := e.deps.Display.Set(ctx, key, value); err != nil {
			e.logger.Warn("update display cache", zap.String("key", key), zap.Error(err))
		}
	}
}

func (e *ProfileEditor) avatarFailure(err error) error {
	e.logger.Warn("pick avatar", zap.String("user_id", e.session.UserID), zap.Error(err))
	return remoteFailure("pick avatar", "Error", "Failed to pick or upload image.", err)
}

func (e *ProfileEditor) saveFailure(err error) error {
	e.logger.Warn("save profile", zap.String("user_id", e.session.UserID), zap.Error(err))
	return remoteFailure("save profile", "Error", "Failed to save changes. Please try again.", err)
}

func (e *ProfileEditor) deleteFailure(err error) error {
	e.logger.Error("delete account", zap.String("user_id", e.session.UserID), zap.Error(err))
	return remoteFailure("delete account", "Error", "Failed to delete account. Please try again.", err)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
