package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"firebase.google.com/go/v4/auth"
	"github.com/localnerve/authorizer-go"
	"github.com/localnerve/jam-build-collectionsdb/internal/config"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/utils"
)

var (
	// ErrNoCredentials is returned when a request carries no session cookie or token.
	ErrNoCredentials = errors.New("no credentials")
	// ErrNotAdmin is returned for a verified identity without admin rights.
	ErrNotAdmin = errors.New("not an administrator")
)

// Credentials are the ways an admin request can identify itself.
type Credentials struct {
	Cookie      string
	BearerToken string
}

// Session is an authenticated admin. IsAdmin mirrors the boolean flag the
// site keeps for its older route guards.
type Session struct {
	User    any  `json:"user"`
	IsAdmin bool `json:"isAdmin"`
}

// AuthProvider validates admin credentials.
type AuthProvider interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
}

// NewAuthProvider returns the provider selected by AUTH_PROVIDER.
// The firebase client is only used, and only required, for the firebase provider.
func NewAuthProvider(cfg *config.Config, firebaseAuth *auth.Client) (AuthProvider, error) {
	switch cfg.AuthProvider {
	case "firebase":
		if firebaseAuth == nil {
			return nil, fmt.Errorf("firebase auth client not initialized")
		}
		return &FirebaseAuthProvider{Client: firebaseAuth, AdminEmails: cfg.FirebaseAdminEmails}, nil
	case "authorizer":
		return &AuthorizerProvider{Config: cfg, Roles: []string{"admin"}}, nil
	}
	return nil, fmt.Errorf("unsupported AUTH_PROVIDER: %s", cfg.AuthProvider)
}

var (
	authClient *authorizer.AuthorizerClient
	authMu     sync.Mutex
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	authMu.Lock()
	defer authMu.Unlock()
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client. A failed attempt leaves
// the client unset so the next call tries again.
func InitAuthorizer(ctx context.Context, cfg *config.Config) error {
	authMu.Lock()
	defer authMu.Unlock()
	if authClient != nil {
		return nil
	}

	// Ping the Authorizer service first
	if err := utils.PingAuthorizer(ctx, cfg.AuthzURL); err != nil {
		return fmt.Errorf("authorizer ping failed: %w", err)
	}

	logger.L().Infof("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
		cfg.AuthzURL, cfg.AuthzClientID, cfg.PublicURL)

	client, err := authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, cfg.PublicURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create authorizer client: %w", err)
	}
	authClient = client
	return nil
}

// ValidateSession validates a session cookie for the given roles
func ValidateSession(cookie string, roles []string) (map[string]interface{}, error) {
	authMu.Lock()
	client := authClient
	authMu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	// Convert roles to []*string
	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}

	// Check if session is valid
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	// Return user data
	return map[string]interface{}{
		"is_valid": res.IsValid,
		"user":     res.User,
	}, nil
}

// AuthorizerProvider validates the authorizer session cookie.
type AuthorizerProvider struct {
	Config *config.Config
	Roles  []string
}

// Name implements AuthProvider.
func (p *AuthorizerProvider) Name() string {
	return "authorizer"
}

// Authenticate implements AuthProvider. The client is created on first use
// so the service can start before the authorizer does.
func (p *AuthorizerProvider) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Cookie == "" {
		return nil, ErrNoCredentials
	}
	if err := InitAuthorizer(ctx, p.Config); err != nil {
		return nil, err
	}

	data, err := ValidateSession(creds.Cookie, p.Roles)
	if err != nil {
		return nil, err
	}
	return &Session{User: data["user"], IsAdmin: true}, nil
}

// IDTokenVerifier checks Firebase ID tokens. *auth.Client implements it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthProvider verifies Firebase ID tokens sent as bearer tokens.
// A token is an admin session when it carries the admin custom claim, or a
// verified email listed in AdminEmails.
type FirebaseAuthProvider struct {
	Client      IDTokenVerifier
	AdminEmails []string
}

// Name implements AuthProvider.
func (p *FirebaseAuthProvider) Name() string {
	return "firebase"
}

// Authenticate implements AuthProvider.
func (p *FirebaseAuthProvider) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.BearerToken == "" {
		return nil, ErrNoCredentials
	}
	token, err := p.Client.VerifyIDToken(ctx, creds.BearerToken)
	if err != nil {
		return nil, fmt.Errorf("id token verification failed: %w", err)
	}

	user := map[string]any{"uid": token.UID}
	email, _ := token.Claims["email"].(string)
	if email != "" {
		user["email"] = email
	}
	if !p.isAdmin(token, email) {
		logger.L().WithField("uid", token.UID).Warn("firebase user without admin rights")
		return nil, ErrNotAdmin
	}
	return &Session{User: user, IsAdmin: true}, nil
}

func (p *FirebaseAuthProvider) isAdmin(token *auth.Token, email string) bool {
	if admin, _ := token.Claims["admin"].(bool); admin {
		return true
	}
	verified, _ := token.Claims["email_verified"].(bool)
	if !verified || email == "" {
		return false
	}
	return slices.ContainsFunc(p.AdminEmails, func(allowed string) bool {
		return strings.EqualFold(allowed, email)
	})
}
