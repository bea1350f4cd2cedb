package array_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Arjun0170/Systolic-Tensors/timing/array"
)

var _ = Describe("Tracker", func() {
	It("should start idle", func() {
		t := array.NewTracker(5)
		Expect(t.Idle()).To(BeTrue())
		Expect(t.Cycles()).To(Equal(uint32(0)))
	})

	It("should fire exactly totalLatency cycles after the last valid input", func() {
		t := array.NewTracker(5)
		Expect(t.Observe(true)).To(BeFalse())
		for i := 0; i < 4; i++ {
			Expect(t.Observe(false)).To(BeFalse())
		}
		Expect(t.Observe(false)).To(BeTrue())
		Expect(t.Idle()).To(BeTrue())
	})

	It("should pulse done for a single cycle", func() {
		t := array.NewTracker(2)
		t.Observe(true)
		Expect(t.Observe(false)).To(BeFalse())
		Expect(t.Observe(false)).To(BeTrue())
		Expect(t.Observe(false)).To(BeFalse())
	})

	It("should rearm the countdown on every valid cycle", func() {
		t := array.NewTracker(3)
		t.Observe(true)
		t.Observe(false)
		t.Observe(true) // retrigger mid-drain
		Expect(t.Observe(false)).To(BeFalse())
		Expect(t.Observe(false)).To(BeFalse())
		Expect(t.Observe(false)).To(BeTrue())
	})

	It("should count active and draining cycles only", func() {
		t := array.NewTracker(2)
		t.Observe(false) // idle, not counted
		t.Observe(true)
		t.Observe(false)
		t.Observe(false)
		t.Observe(false) // idle again, not counted
		Expect(t.Cycles()).To(Equal(uint32(3)))
	})

	It("should return to the initial state on reset", func() {
		t := array.NewTracker(4)
		t.Observe(true)
		t.Reset()
		Expect(t.Idle()).To(BeTrue())
		Expect(t.Cycles()).To(Equal(uint32(0)))
		for i := 0; i < 8; i++ {
			Expect(t.Observe(false)).To(BeFalse())
		}
	})

	It("should reject non-positive latencies", func() {
		Expect(func() { array.NewTracker(0) }).To(Panic())
	})
})
