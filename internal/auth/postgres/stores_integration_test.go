// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/internal/auth/postgres"
)

func newUser(email, publicID string) *auth.User {
	u, err := auth.NewUser(email, publicID, "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA", false)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		repo = postgres.NewUserRepository(pool)
	})

	It("round-trips a user", func() {
		u := newUser("Ann@Camp.io", "ann")
		Expect(repo.Create(ctx, u)).To(Succeed())

		got, err := repo.GetByEmail(ctx, "ann@camp.io")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(u.ID))
		Expect(got.Email).To(Equal("Ann@Camp.io"))
		Expect(got.CreatedAt).To(BeTemporally("~", u.CreatedAt, time.Millisecond))

		got, err = repo.GetByPublicID(ctx, "ann")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(u.ID))
	})

	It("treats publicId lookups as exact", func() {
		Expect(repo.Create(ctx, newUser("ann@camp.io", "ann"))).To(Succeed())

		_, err := repo.GetByPublicID(ctx, "Ann")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("maps the email index to a duplicate email error", func() {
		Expect(repo.Create(ctx, newUser("ann@camp.io", "ann"))).To(Succeed())

		err := repo.Create(ctx, newUser("ANN@camp.io", "other"))
		Expect(auth.ErrorCode(err)).To(Equal(auth.CodeDuplicateEmail))
	})

	It("maps the public id index to a duplicate public id error", func() {
		Expect(repo.Create(ctx, newUser("ann@camp.io", "ann"))).To(Succeed())

		err := repo.Create(ctx, newUser("bob@camp.io", "ann"))
		Expect(auth.ErrorCode(err)).To(Equal(auth.CodeDuplicatePublicID))
	})

	It("admits exactly one of many concurrent registrations for an email", func() {
		const n = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			dupes     int
		)
		for i := range n {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				err := repo.Create(ctx, newUser("race@camp.io", fmt.Sprintf("racer%d", i)))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case auth.ErrorCode(err) == auth.CodeDuplicateEmail:
					dupes++
				default:
					Fail(fmt.Sprintf("unexpected error: %v", err))
				}
			}()
		}
		wg.Wait()

		Expect(succeeded).To(Equal(1))
		Expect(dupes).To(Equal(n - 1))
	})

	It("updates only the password hash", func() {
		u := newUser("ann@camp.io", "ann")
		Expect(repo.Create(ctx, u)).To(Succeed())

		Expect(repo.UpdatePassword(ctx, u.ID, "$argon2id$upgraded")).To(Succeed())

		got, err := repo.GetByEmail(ctx, "ann@camp.io")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("$argon2id$upgraded"))
		Expect(got.PublicID).To(Equal("ann"))
	})
})

var _ = Describe("SessionRegistry", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
	})

	It("opens, replaces and closes a session", func() {
		reg := postgres.NewSessionRegistry(pool, 0)

		_, err := reg.Open(ctx, "ann", false)
		Expect(err).NotTo(HaveOccurred())
		_, err = reg.Open(ctx, "ann", true)
		Expect(err).NotTo(HaveOccurred())

		s, err := reg.Lookup(ctx, "ann")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.IsMaster).To(BeTrue())
		Expect(s.ExpiresAt.IsZero()).To(BeTrue())

		Expect(reg.Close(ctx, "ann")).To(Succeed())
		Expect(reg.Close(ctx, "ann")).To(Succeed())

		_, err = reg.Lookup(ctx, "ann")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("hides and sweeps expired sessions", func() {
		reg := postgres.NewSessionRegistry(pool, 50*time.Millisecond)

		_, err := reg.Open(ctx, "ann", false)
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() error {
			_, err := reg.Lookup(ctx, "ann")
			return err
		}).WithTimeout(2 * time.Second).Should(MatchError(auth.ErrNotFound))

		n, err := reg.DeleteExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})
})
