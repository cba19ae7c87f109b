package payment_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/payment"
)

var _ = Describe("Payment", func() {
	Describe("NewGatewayOrderPayment", func() {
		It("starts CREATED with nothing paid", func() {
			p := payment.NewGatewayOrderPayment(payment.EntityTypePurchaseOrder, 42,
				"order_abc", "po_1_42_1", 50000, "INR", 1, "ops")

			Expect(p.PaymentStatus).To(Equal(payment.StatusCreated))
			Expect(p.PaymentGateway).To(Equal(payment.GatewayRazorpay))
			Expect(p.OrderAmountPaise).To(Equal(int64(50000)))
			Expect(p.AmountPaidPaise).To(BeZero())
			Expect(*p.GatewayOrderID).To(Equal("order_abc"))
			Expect(p.CapturedAt).To(BeNil())
			Expect(p.IsSuccessful()).To(BeFalse())
			Expect(p.CanBeRefunded()).To(BeFalse())
		})
	})

	Describe("NewManualPayment", func() {
		It("is captured on creation with the payment date recorded", func() {
			paidOn := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
			p := payment.NewManualPayment(payment.EntityTypePurchaseOrder, 42,
				30000, "INR", payment.MethodCash, paidOn, nil, nil, "counter payment", false, 1, "ops")

			Expect(p.PaymentStatus).To(Equal(payment.StatusCaptured))
			Expect(p.PaymentGateway).To(Equal(payment.GatewayManual))
			Expect(p.AmountPaidPaise).To(Equal(int64(30000)))
			Expect(p.AmountPaid.Equal(decimal.NewFromInt(300))).To(BeTrue())
			Expect(*p.PaymentDate).To(Equal(paidOn))
			Expect(p.GatewayReceipt).To(HavePrefix("CASH_42_"))
			Expect(p.IsSuccessful()).To(BeTrue())
		})
	})

	Describe("MarkCaptured", func() {
		It("records the gateway identifiers and the paid amount", func() {
			p := payment.NewGatewayOrderPayment(payment.EntityTypePurchaseOrder, 42,
				"order_abc", "po_1_42_1", 50000, "INR", 1, "ops")

			p.MarkCaptured("pay_xyz", "deadbeef", 50000, "verifier")

			Expect(p.PaymentStatus).To(Equal(payment.StatusCaptured))
			Expect(*p.GatewayPaymentID).To(Equal("pay_xyz"))
			Expect(p.AmountPaidPaise).To(Equal(int64(50000)))
			Expect(p.CapturedAt).ToNot(BeNil())
			Expect(p.ModifiedUser).To(Equal("verifier"))
			Expect(p.CanBeRefunded()).To(BeTrue())
			Expect(p.RefundableAmountPaise()).To(Equal(int64(50000)))
		})
	})

	Describe("MarkFailed", func() {
		It("records the failure and keeps the paid amount at zero", func() {
			p := payment.NewGatewayOrderPayment(payment.EntityTypePurchaseOrder, 42,
				"order_abc", "po_1_42_1", 50000, "INR", 1, "ops")

			p.MarkFailed("SIGNATURE_MISMATCH", "Invalid signature", "verifier")

			Expect(p.PaymentStatus).To(Equal(payment.StatusFailed))
			Expect(*p.ErrorCode).To(Equal("SIGNATURE_MISMATCH"))
			Expect(p.AmountPaidPaise).To(BeZero())
			Expect(p.IsSuccessful()).To(BeFalse())
			Expect(p.RefundableAmountPaise()).To(BeZero())
		})
	})

	Describe("RecordRefund", func() {
		var p *payment.Payment

		BeforeEach(func() {
			p = payment.NewGatewayOrderPayment(payment.EntityTypePurchaseOrder, 42,
				"order_abc", "po_1_42_1", 50000, "INR", 1, "ops")
			p.MarkCaptured("pay_xyz", "deadbeef", 50000, "verifier")
		})

		It("moves to PARTIALLY_REFUNDED below the paid amount", func() {
			p.RecordRefund("rfnd_1", 20000, "ops")

			Expect(p.PaymentStatus).To(Equal(payment.StatusPartiallyRefunded))
			Expect(p.AmountRefundedPaise).To(Equal(int64(20000)))
			Expect(p.RefundCount).To(Equal(1))
			Expect(*p.LastRefundID).To(Equal("rfnd_1"))
			Expect(p.IsSuccessful()).To(BeTrue())
			Expect(p.RefundableAmountPaise()).To(Equal(int64(30000)))
		})

		It("reaches the terminal REFUNDED state at the exact boundary", func() {
			p.RecordRefund("rfnd_1", 20000, "ops")
			p.RecordRefund("rfnd_2", 30000, "ops")

			Expect(p.PaymentStatus).To(Equal(payment.StatusRefunded))
			Expect(p.AmountRefundedPaise).To(Equal(p.AmountPaidPaise))
			Expect(p.RefundCount).To(Equal(2))
			Expect(p.IsSuccessful()).To(BeFalse())
			Expect(p.CanBeRefunded()).To(BeFalse())
			Expect(p.RefundableAmountPaise()).To(BeZero())
		})
	})

	Describe("PaiseToDecimal", func() {
		It("converts minor units to a major-unit decimal", func() {
			Expect(payment.PaiseToDecimal(12345).StringFixed(2)).To(Equal("123.45"))
			Expect(payment.PaiseToDecimal(0).StringFixed(2)).To(Equal("0.00"))
		})
	})

	Describe("IsValidStatus", func() {
		It("accepts only known lifecycle states", func() {
			Expect(payment.IsValidStatus(payment.StatusCreated)).To(BeTrue())
			Expect(payment.IsValidStatus(payment.StatusRefunded)).To(BeTrue())
			Expect(payment.IsValidStatus("SETTLED")).To(BeFalse())
		})
	})
})
