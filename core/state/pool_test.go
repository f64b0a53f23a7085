package state_test

import (
	"context"
	"time"

	. "github.com/coachworks/agentchat/core/state"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("lets one caller in per conversation", func() {
		pool := NewPool(4, time.Minute)
		release, err := pool.Acquire(ctx, "c1")
		Expect(err).ToNot(HaveOccurred())

		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = pool.Acquire(tctx, "c1")
		Expect(err).To(MatchError(context.DeadlineExceeded))

		other, err := pool.Acquire(ctx, "c2")
		Expect(err).ToNot(HaveOccurred())
		other()

		release()
		again, err := pool.Acquire(ctx, "c1")
		Expect(err).ToNot(HaveOccurred())
		again()
	})

	It("hands the conversation to the next waiter on release", func() {
		pool := NewPool(4, time.Minute)
		release, err := pool.Acquire(ctx, "c1")
		Expect(err).ToNot(HaveOccurred())

		acquired := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			next, err := pool.Acquire(ctx, "c1")
			Expect(err).ToNot(HaveOccurred())
			close(acquired)
			next()
		}()

		Consistently(acquired, 30*time.Millisecond).ShouldNot(BeClosed())
		release()
		Eventually(acquired).Should(BeClosed())
	})

	It("caps concurrent runs across conversations", func() {
		pool := NewPool(1, time.Minute)
		release, err := pool.Acquire(ctx, "c1")
		Expect(err).ToNot(HaveOccurred())

		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = pool.Acquire(tctx, "c2")
		Expect(err).To(HaveOccurred())

		release()
		next, err := pool.Acquire(ctx, "c2")
		Expect(err).ToNot(HaveOccurred())
		next()
	})

	It("tolerates releasing twice", func() {
		pool := NewPool(1, time.Minute)
		release, err := pool.Acquire(ctx, "c1")
		Expect(err).ToNot(HaveOccurred())
		release()
		release()

		next, err := pool.Acquire(ctx, "c1")
		Expect(err).ToNot(HaveOccurred())
		next()
	})

	It("prunes idle locks but not held ones", func() {
		pool := NewPool(4, time.Millisecond)
		idle, err := pool.Acquire(ctx, "idle")
		Expect(err).ToNot(HaveOccurred())
		idle()
		held, err := pool.Acquire(ctx, "held")
		Expect(err).ToNot(HaveOccurred())
		defer held()

		Expect(pool.Size()).To(Equal(2))
		time.Sleep(5 * time.Millisecond)
		Expect(pool.Prune()).To(Equal(1))
		Expect(pool.Size()).To(Equal(1))
	})

	It("rejects a bad prune schedule", func() {
		pool := NewPool(1, time.Minute)
		Expect(pool.Start("every now and then")).ToNot(Succeed())
		Expect(pool.Start("@every 1h")).To(Succeed())
		pool.Stop()
	})
})
