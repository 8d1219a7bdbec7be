package auth

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/workos/workos-go/v6/pkg/usermanagement"
	"github.com/workos/workos-go/v6/pkg/workos_errors"

	"github.com/psds-microservice/mentor-queue/internal/database"
	"github.com/psds-microservice/mentor-queue/internal/logging"
)

type fakeWorkOS struct {
	authErr   error
	createErr error
	created   []string
}

func (f *fakeWorkOS) AuthenticateWithPassword(_ context.Context, opts usermanagement.AuthenticateWithPasswordOpts) (usermanagement.AuthenticateResponse, error) {
	if f.authErr != nil {
		return usermanagement.AuthenticateResponse{}, f.authErr
	}
	return usermanagement.AuthenticateResponse{User: usermanagement.User{Email: opts.Email}}, nil
}

func (f *fakeWorkOS) CreateUser(_ context.Context, opts usermanagement.CreateUserOpts) (usermanagement.User, error) {
	if f.createErr != nil {
		return usermanagement.User{}, f.createErr
	}
	f.created = append(f.created, opts.Email)
	f.authErr = nil
	return usermanagement.User{Email: opts.Email}, nil
}

var _ = Describe("WorkOSProvider", func() {
	var (
		ctx  context.Context
		fake *fakeWorkOS
		p    *WorkOSProvider
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := database.OpenLocal(filepath.Join(GinkgoT().TempDir(), "workos.db"), logging.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = database.Close(db) })
		Expect(AutoMigrate(db)).To(Succeed())
		fake = &fakeWorkOS{}
		p = &WorkOSProvider{cfg: WorkOSConfig{ClientID: "client"}, api: fake, sessions: NewSessionTable(db)}
	})

	It("issues its own session after a successful password check", func() {
		s, err := p.SignInWithPassword(ctx, "Kayo@mentor.com", "secret1")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Email).To(Equal("kayo@mentor.com"))

		got, err := p.Lookup(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsAnonymous).To(BeFalse())
	})

	DescribeTable("maps http errors",
		func(code int, msg string, creating bool, want error) {
			err := mapWorkOSError(workos_errors.HTTPError{Code: code, Message: msg}, creating)
			Expect(errors.Is(err, want)).To(BeTrue(), "got %v", err)
		},
		Entry("rate limit", http.StatusTooManyRequests, "", false, ErrTooManyRequests),
		Entry("bad credentials", http.StatusUnauthorized, "Invalid credentials", false, ErrInvalidCredential),
		Entry("unknown user", http.StatusNotFound, "", false, ErrUserNotFound),
		Entry("existing user", http.StatusUnprocessableEntity, "email not available", true, ErrEmailInUse),
		Entry("weak password", http.StatusUnprocessableEntity, "Password does not meet strength requirements", true, ErrWeakPassword),
	)

	It("creates the user and signs in", func() {
		s, err := p.CreateAccount(ctx, "ana@mentor.com", "secret1")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Email).To(Equal("ana@mentor.com"))
		Expect(fake.created).To(ConsistOf("ana@mentor.com"))
	})
})
