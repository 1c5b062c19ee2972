package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"libris/internal/auth/models"
	"libris/internal/auth/password"
	sessionstore "libris/internal/auth/store/session"
	userstore "libris/internal/auth/store/user"
	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/audit"
	auditmemory "libris/pkg/platform/audit/store/memory"
	"libris/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	users    *userstore.InMemoryStore
	sessions *sessionstore.InMemoryStore
	sink     *auditmemory.InMemoryStore
	service  *Service
}

func (s *ServiceSuite) SetupTest() {
	s.users = userstore.NewInMemory()
	s.sessions = sessionstore.NewInMemory()
	s.sink = auditmemory.NewInMemoryStore()
	s.service = NewService(s.users, s.sessions, WithAuditPublisher(s.sink))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) seedUser(username, pass string) *models.User {
	hash, err := password.Hash(pass)
	s.Require().NoError(err)
	user := &models.User{
		ID:           id.UserID(uuid.New()),
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    "Test",
		LastName:     "User",
		Role:         "user",
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.users.Create(context.Background(), user))
	return user
}

func (s *ServiceSuite) TestLoginValidation() {
	ctx := context.Background()

	s.Run("empty username fails before storage", func() {
		_, err := s.service.Login(ctx, "", "password")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty password fails before storage", func() {
		_, err := s.service.Login(ctx, "admin", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("username shorter than 3 chars fails", func() {
		_, err := s.service.Login(ctx, "ab", "password")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestLoginCredentialFailuresAreIndistinguishable() {
	ctx := context.Background()
	s.seedUser("admin", "Adm1nPass")

	_, ghostErr := s.service.Login(ctx, "ghost", "whatever")
	_, wrongErr := s.service.Login(ctx, "admin", "wrongpass")

	s.Require().Error(ghostErr)
	s.Require().Error(wrongErr)
	s.True(dErrors.HasCode(ghostErr, dErrors.CodeInvalidCredentials))
	s.True(dErrors.HasCode(wrongErr, dErrors.CodeInvalidCredentials))
	s.Equal(dErrors.MessageOf(ghostErr), dErrors.MessageOf(wrongErr))

	s.Run("failure paths are audited distinctly", func() {
		s.Len(s.sink.ByAction(audit.ActionLoginUserNotFound), 1)
		s.Len(s.sink.ByAction(audit.ActionLoginInvalidPass), 1)
	})
}

func (s *ServiceSuite) TestLoginSuccessCreatesOneSession() {
	ctx := context.Background()
	user := s.seedUser("admin", "Adm1nPass")

	result, err := s.service.Login(ctx, "admin", "Adm1nPass")
	s.Require().NoError(err)
	s.Equal(user.ID, result.User.UserID)
	s.Equal("admin", result.User.Username)
	s.Len(result.Token, 64)
	s.Equal(1, s.sessions.Len())
	s.Len(s.sink.ByAction(audit.ActionLoginSuccess), 1)

	s.Run("session expires 24h after issuance", func() {
		session, err := s.sessions.FindByToken(ctx, result.Token)
		s.Require().NoError(err)
		s.WithinDuration(session.CreatedAt.Add(24*time.Hour), session.ExpiresAt, time.Second)
	})
}

func (s *ServiceSuite) TestLoginValidateRoundTrip() {
	ctx := context.Background()
	user := s.seedUser("admin", "Adm1nPass")

	result, err := s.service.Login(ctx, "admin", "Adm1nPass")
	s.Require().NoError(err)

	ident, ok, err := s.service.ValidateSession(ctx, result.Token)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(user.ID, ident.UserID)
	s.Equal("admin", ident.Username)

	s.Require().NoError(s.service.Logout(ctx, result.Token))

	_, ok, err = s.service.ValidateSession(ctx, result.Token)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestLogoutIsIdempotent() {
	ctx := context.Background()
	s.seedUser("admin", "Adm1nPass")
	result, err := s.service.Login(ctx, "admin", "Adm1nPass")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Logout(ctx, result.Token))
	s.Require().NoError(s.service.Logout(ctx, result.Token))
	s.Require().NoError(s.service.Logout(ctx, "never-was-a-token"))

	s.Run("only the real deletion is audited", func() {
		s.Len(s.sink.ByAction(audit.ActionLogout), 1)
	})
}

func (s *ServiceSuite) TestValidateSession() {
	ctx := context.Background()

	s.Run("empty token is unauthenticated, not an error", func() {
		_, ok, err := s.service.ValidateSession(ctx, "")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("unknown token is unauthenticated", func() {
		_, ok, err := s.service.ValidateSession(ctx, "deadbeef")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("expired session is rejected and lazily deleted", func() {
		s.seedUser("admin", "Adm1nPass")
		result, err := s.service.Login(ctx, "admin", "Adm1nPass")
		s.Require().NoError(err)

		future := requestcontext.WithTime(ctx, time.Now().Add(25*time.Hour))
		_, ok, err := s.service.ValidateSession(future, result.Token)
		s.Require().NoError(err)
		s.False(ok)
		s.Equal(0, s.sessions.Len())
	})

	s.Run("session of a deactivated user is rejected", func() {
		user := s.seedUser("casper", "Cas1perPass")
		result, err := s.service.Login(ctx, "casper", "Cas1perPass")
		s.Require().NoError(err)

		s.Require().NoError(s.users.Deactivate(ctx, user.ID))

		_, ok, err := s.service.ValidateSession(ctx, result.Token)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ServiceSuite) TestRegister() {
	ctx := context.Background()

	valid := RegisterInput{
		Username:  "newuser",
		Email:     "new@example.com",
		Password:  "Sup3rSecret",
		FirstName: "New",
		LastName:  "User",
	}

	s.Run("creates the user and audits", func() {
		profile, err := s.service.Register(ctx, valid)
		s.Require().NoError(err)
		s.Equal("newuser", profile.Username)
		s.Equal("user", profile.Role)
		s.Len(s.sink.ByAction(audit.ActionRegister), 1)

		_, err = s.service.Login(ctx, "newuser", "Sup3rSecret")
		s.Require().NoError(err)
	})

	s.Run("duplicate username conflicts", func() {
		_, err := s.service.Register(ctx, valid)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects invalid input", func() {
		tests := []struct {
			name   string
			mutate func(*RegisterInput)
		}{
			{"short username", func(in *RegisterInput) { in.Username = "ab" }},
			{"bad charset", func(in *RegisterInput) { in.Username = "bad name!" }},
			{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
			{"weak password", func(in *RegisterInput) { in.Password = "alllower" }},
			{"empty first name", func(in *RegisterInput) { in.FirstName = "" }},
			{"empty last name", func(in *RegisterInput) { in.LastName = "" }},
		}
		for _, tt := range tests {
			s.Run(tt.name, func() {
				in := valid
				in.Username = "another"
				in.Email = "another@example.com"
				tt.mutate(&in)
				_, err := s.service.Register(ctx, in)
				s.Require().Error(err)
				s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			})
		}
	})
}

func (s *ServiceSuite) TestProfile() {
	ctx := context.Background()
	user := s.seedUser("admin", "Adm1nPass")

	profile, err := s.service.Profile(ctx, user.Identity())
	s.Require().NoError(err)
	s.Equal(user.ID, profile.ID)
	s.Equal(user.Email, profile.Email)

	s.Run("deactivated user yields not found", func() {
		s.Require().NoError(s.users.Deactivate(ctx, user.ID))
		_, err := s.service.Profile(ctx, user.Identity())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
