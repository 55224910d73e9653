package helpers

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/localnerve/authorizer-go"
)

// Account is an authorizer user created for one test run
type Account struct {
	Email       string
	Password    string
	Roles       []string
	AccessToken string
}

// NewAccount returns credentials unique to this run. Roles default to "user".
func NewAccount(prefix string, roles ...string) *Account {
	if len(roles) == 0 {
		roles = []string{"user"}
	}
	return &Account{
		Email:    fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano()),
		Password: GeneratePassword(),
		Roles:    roles,
	}
}

// GeneratePassword returns a 10 character password holding at least one
// capital, one digit and one special character, as the authorizer requires.
func GeneratePassword() string {
	const (
		lower   = "abcdefghijklmnopqrstuvwxyz"
		upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		special = "!@#$%^&*"
		numbers = "0123456789"
		all     = lower + upper + special + numbers
	)
	pick := func(set string) byte { return set[rand.IntN(len(set))] }

	password := []byte{pick(upper), pick(special), pick(numbers)}
	for len(password) < 10 {
		password = append(password, pick(all))
	}
	rand.Shuffle(len(password), func(i, j int) {
		password[i], password[j] = password[j], password[i]
	})
	return string(password)
}

// AcquireAccount signs acct up, tolerating an existing user, logs in and
// stores the access token on acct.
func AcquireAccount(t *testing.T, authzURL string, acct *Account) string {
	t.Helper()
	client, err := authorizer.NewAuthorizerClient("test_client", authzURL, "", nil)
	if err != nil {
		t.Fatalf("Failed to create authorizer client: %v", err)
	}

	roles := make([]*string, len(acct.Roles))
	for i := range acct.Roles {
		roles[i] = &acct.Roles[i]
	}
	if _, err := client.SignUp(&authorizer.SignUpInput{
		Email:           &acct.Email,
		Password:        acct.Password,
		ConfirmPassword: acct.Password,
		Roles:           roles,
	}); err != nil {
		t.Logf("Signup failed for %s (might already exist): %v", acct.Email, err)
	}

	res, err := client.Login(&authorizer.LoginInput{
		Email:    &acct.Email,
		Password: acct.Password,
	})
	if err != nil {
		t.Fatalf("Login failed for %s: %v", acct.Email, err)
	}
	if res.AccessToken == nil {
		t.Fatalf("Login for %s returned no access token", acct.Email)
	}

	acct.AccessToken = *res.AccessToken
	return acct.AccessToken
}
