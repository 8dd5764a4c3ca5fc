// Package auth implements the credential-checking backend service. It owns a
// static username/secret map loaded at boot and answers yes/no authentication
// requests from the coordinator.
package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/marketsim/stocksim/wire"
)

// Service holds the loaded credential map. Usernames are case-insensitive,
// secrets are compared exactly. The map is never mutated after load, so the
// transport's single sequential receive loop is the only access path needed.
type Service struct {
	creds map[string]string
	log   logrus.FieldLogger
}

func NewService(creds map[string]string, log logrus.FieldLogger) *Service {
	lowered := make(map[string]string, len(creds))
	for user, secret := range creds {
		lowered[strings.ToLower(user)] = secret
	}
	return &Service{creds: lowered, log: log}
}

// Authenticate reports whether the user/secret pair matches a stored
// credential. The secret must already be in ciphered form (the coordinator
// ciphers it before forwarding; the credential file stores ciphered secrets).
func (s *Service) Authenticate(user, secret string) bool {
	stored, ok := s.creds[strings.ToLower(user)]
	return ok && stored == secret
}

// Handle answers one authentication request. The returned bool reports
// whether a response should be sent (always true for auth).
func (s *Service) Handle(token, payload string) (string, bool) {
	creds, err := wire.ParseCredentials(payload)
	if err != nil {
		s.log.WithField("token", token).Warn("malformed authentication request")
		return wire.StatusFailure, true
	}
	if s.Authenticate(creds.User, creds.Secret) {
		s.log.WithField("user", creds.User).Info("member authenticated")
		return wire.StatusSuccess, true
	}
	s.log.WithField("user", creds.User).Info("authentication rejected")
	return wire.StatusFailure, true
}

// LoadMembers reads a credential file with one "<user> <secret>" pair per
// line. Secrets in the file are stored in ciphered form.
func LoadMembers(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open members file: %w", err)
	}
	defer f.Close()

	creds := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		user, secret, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("members file: malformed line %q", line)
		}
		creds[strings.ToLower(user)] = secret
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read members file: %w", err)
	}
	return creds, nil
}
