package resilience_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/emergency-ai/decision-core/pkg/resilience"
)

func TestResilience(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Resilience Breaker Suite")
}

var _ = Describe("Breaker", func() {
	var logger *logrus.Logger

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
	})

	It("starts closed and allows calls through", func() {
		b := resilience.NewBreaker("kg-adapter", 0.5, 5, 10*time.Second, logger)
		err := b.Call(context.Background(), func(ctx context.Context) error { return nil })
		Expect(err).ToNot(HaveOccurred())
	})

	It("opens after the failure threshold is exceeded over the minimum request count", func() {
		b := resilience.NewBreaker("db-adapter", 0.5, 5, time.Minute, logger)

		for i := 0; i < 2; i++ {
			_ = b.Call(context.Background(), func(ctx context.Context) error { return nil })
		}
		for i := 0; i < 3; i++ {
			_ = b.Call(context.Background(), func(ctx context.Context) error { return fmt.Errorf("boom") })
		}

		err := b.Call(context.Background(), func(ctx context.Context) error { return nil })
		Expect(err).To(HaveOccurred())
		Expect(resilience.IsOpen(err)).To(BeTrue())
	})
})
