package settlement_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsharma-dev/order-settlement/internal/settlement"
)

var _ = Describe("VerifySignature", func() {
	const (
		orderID   = "order_NXhj2f8M"
		paymentID = "pay_NXhkQw3Lz"
		secret    = "whsec_supersecret"
	)

	It("accepts the digest computed over orderID|paymentID", func() {
		sig := testSignature(orderID, paymentID, secret)
		Expect(settlement.VerifySignature(orderID, paymentID, sig, secret)).To(BeTrue())
	})

	It("rejects a digest computed with a different secret", func() {
		sig := testSignature(orderID, paymentID, "some_other_secret")
		Expect(settlement.VerifySignature(orderID, paymentID, sig, secret)).To(BeFalse())
	})

	It("rejects a digest over swapped identifiers", func() {
		sig := testSignature(paymentID, orderID, secret)
		Expect(settlement.VerifySignature(orderID, paymentID, sig, secret)).To(BeFalse())
	})

	It("rejects a tampered signature", func() {
		sig := testSignature(orderID, paymentID, secret)
		tampered := "0" + sig[1:]
		if tampered == sig {
			tampered = "1" + sig[1:]
		}
		Expect(settlement.VerifySignature(orderID, paymentID, tampered, secret)).To(BeFalse())
	})

	It("rejects a blank signature", func() {
		Expect(settlement.VerifySignature(orderID, paymentID, "", secret)).To(BeFalse())
	})

	It("rejects verification against a blank secret", func() {
		sig := testSignature(orderID, paymentID, "")
		Expect(settlement.VerifySignature(orderID, paymentID, sig, "")).To(BeFalse())
	})
})
