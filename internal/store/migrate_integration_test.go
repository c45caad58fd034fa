// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

//go:build integration

package store_test

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/socialcamp/campauth/internal/store"
)

func tableExists(ctx context.Context, pool *pgxpool.Pool, name string) bool {
	var ok bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, name).Scan(&ok)
	Expect(err).NotTo(HaveOccurred())
	return ok
}

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx      context.Context
		migrator *store.Migrator
		pool     *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		pool, err = store.Connect(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		pool.Close()
		Expect(migrator.Close()).To(Succeed())
	})

	It("starts at version zero", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("applies users and sessions", func() {
		Expect(migrator.Up()).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())

		Expect(tableExists(ctx, pool, "users")).To(BeTrue())
		Expect(tableExists(ctx, pool, "sessions")).To(BeTrue())

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("enforces case-insensitive email uniqueness", func() {
		_, err := pool.Exec(ctx, `INSERT INTO users (id, email, public_id, password_hash) VALUES ('a', 'Ann@Camp.io', 'ann', 'x')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `INSERT INTO users (id, email, public_id, password_hash) VALUES ('b', 'ann@camp.io', 'ann2', 'x')`)
		Expect(err).To(MatchError(ContainSubstring("users_email_lower_key")))
		_, err = pool.Exec(ctx, `INSERT INTO users (id, email, public_id, password_hash) VALUES ('c', 'other@camp.io', 'ann', 'x')`)
		Expect(err).To(MatchError(ContainSubstring("users_public_id_key")))
	})

	It("steps back and forward one version", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(tableExists(ctx, pool, "sessions")).To(BeFalse())

		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Applied).To(HaveLen(1))
		Expect(st.Pending).To(ConsistOf(store.Migration{Version: 2, Name: "000002_sessions"}))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(tableExists(ctx, pool, "users")).To(BeFalse())
	})
})
