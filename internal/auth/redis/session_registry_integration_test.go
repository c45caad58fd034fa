// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/socialcamp/campauth/internal/auth"
	authredis "github.com/socialcamp/campauth/internal/auth/redis"
)

var _ = Describe("SessionRegistry", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		flush(ctx)
	})

	It("opens, looks up and closes a session", func() {
		reg := authredis.NewSessionRegistry(client, 0)

		opened, err := reg.Open(ctx, "ann", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(opened.ExpiresAt.IsZero()).To(BeTrue())

		got, err := reg.Lookup(ctx, "ann")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsMaster).To(BeTrue())
		Expect(got.IssuedAt).To(BeTemporally("~", opened.IssuedAt, time.Millisecond))

		Expect(client.TTL(ctx, authredis.DefaultKeyPrefix+"ann").Val()).To(Equal(time.Duration(-1)))

		Expect(reg.Close(ctx, "ann")).To(Succeed())
		Expect(reg.Close(ctx, "ann")).To(Succeed())
		_, err = reg.Lookup(ctx, "ann")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("lets the server expire sessions", func() {
		reg := authredis.NewSessionRegistry(client, time.Second)

		_, err := reg.Open(ctx, "ann", false)
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() error {
			_, lookupErr := reg.Lookup(ctx, "ann")
			return lookupErr
		}).WithTimeout(5 * time.Second).WithPolling(100 * time.Millisecond).
			Should(MatchError(auth.ErrNotFound))
	})

	It("clears a previous expiry when reopened without a TTL", func() {
		_, err := authredis.NewSessionRegistry(client, time.Hour).Open(ctx, "ann", false)
		Expect(err).NotTo(HaveOccurred())

		_, err = authredis.NewSessionRegistry(client, 0).Open(ctx, "ann", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.TTL(ctx, authredis.DefaultKeyPrefix+"ann").Val()).To(Equal(time.Duration(-1)))
	})

	It("keeps one session per public id under concurrent opens", func() {
		reg := authredis.NewSessionRegistry(client, 0)

		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func(master bool) {
				defer GinkgoRecover()
				defer wg.Done()
				_, openErr := reg.Open(ctx, "ann", master)
				Expect(openErr).NotTo(HaveOccurred())
			}(i%2 == 0)
		}
		wg.Wait()

		keys, err := client.Keys(ctx, authredis.DefaultKeyPrefix+"*").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).To(ConsistOf(fmt.Sprintf("%sann", authredis.DefaultKeyPrefix)))

		_, err = reg.Lookup(ctx, "ann")
		Expect(err).NotTo(HaveOccurred())
	})
})
