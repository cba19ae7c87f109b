package settlement_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/order"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/payment"
	tenantmodel "github.com/rsharma-dev/order-settlement/internal/core/datamodel/tenant"
	"github.com/rsharma-dev/order-settlement/internal/core/events"
	"github.com/rsharma-dev/order-settlement/internal/gateway"
	"github.com/rsharma-dev/order-settlement/internal/settlement"
	"github.com/rsharma-dev/order-settlement/internal/tenant"
)

// Mock ledger repository for testing
type mockPaymentRepository struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]*payment.Payment

	createError error
	saveError   error
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{
		payments: make(map[int64]*payment.Payment),
	}
}

func (m *mockPaymentRepository) Create(p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	m.nextID++
	p.PaymentID = m.nextID
	m.payments[p.PaymentID] = p
	return nil
}

func (m *mockPaymentRepository) Save(p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.payments[p.PaymentID] = p
	return nil
}

func (m *mockPaymentRepository) GetByID(paymentID int64) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.payments[paymentID]
	if !exists {
		return nil, apperrors.ErrPaymentNotFound
	}
	return p, nil
}

func (m *mockPaymentRepository) GetByGatewayOrderID(gatewayOrderID string) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.GatewayOrderID != nil && *p.GatewayOrderID == gatewayOrderID {
			return p, nil
		}
	}
	return nil, apperrors.ErrPaymentOrderNotFound
}

func (m *mockPaymentRepository) ListByEntity(entityType string, entityID int64) ([]*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*payment.Payment
	for _, p := range m.payments {
		if p.EntityType == entityType && p.EntityID == entityID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) NetPaidPaise(entityType string, entityID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var net int64
	for _, p := range m.payments {
		if p.EntityType != entityType || p.EntityID != entityID {
			continue
		}
		if p.PaymentStatus == payment.StatusFailed {
			continue
		}
		net += p.AmountPaidPaise - p.AmountRefundedPaise
	}
	return net, nil
}

func (m *mockPaymentRepository) HasSuccessfulPayment(entityType string, entityID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.EntityType == entityType && p.EntityID == entityID && p.IsSuccessful() {
			return true, nil
		}
	}
	return false, nil
}

// Mock order repository
type mockOrderRepository struct {
	mu        sync.Mutex
	orders    map[int64]*order.PurchaseOrder
	summaries map[int64]*order.OrderSummary

	saveSummaryCalls int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		orders:    make(map[int64]*order.PurchaseOrder),
		summaries: make(map[int64]*order.OrderSummary),
	}
}

// GetByID hands out row copies so concurrent callers behave as they would
// against a real database.
func (m *mockOrderRepository) GetByID(purchaseOrderID int64) (*order.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	po, exists := m.orders[purchaseOrderID]
	if !exists {
		return nil, apperrors.ErrPurchaseOrderNotFound
	}
	row := *po
	return &row, nil
}

func (m *mockOrderRepository) Save(po *order.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *po
	m.orders[po.PurchaseOrderID] = &row
	return nil
}

func (m *mockOrderRepository) GetSummaryByEntity(entityType string, entityID int64) (*order.OrderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.summaries[entityID]
	if !exists {
		return nil, apperrors.ErrOrderSummaryNotFound
	}
	row := *s
	return &row, nil
}

func (m *mockOrderRepository) SaveSummary(summary *order.OrderSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveSummaryCalls++
	row := *summary
	m.summaries[summary.EntityID] = &row
	return nil
}

// Mock credential resolver; counts resolutions to assert fail-fast ordering
type mockCredentialResolver struct {
	clients      map[int64]*tenantmodel.Client
	resolveError error
	resolveCalls int
}

func (m *mockCredentialResolver) GetClient(clientID int64) (*tenantmodel.Client, error) {
	c, exists := m.clients[clientID]
	if !exists {
		return nil, apperrors.ErrClientNotFound
	}
	return c, nil
}

func (m *mockCredentialResolver) ResolveGatewayCredentials(clientID int64) (*tenant.GatewayCredentials, error) {
	m.resolveCalls++
	if m.resolveError != nil {
		return nil, m.resolveError
	}
	c, exists := m.clients[clientID]
	if !exists {
		return nil, apperrors.ErrClientNotFound
	}
	if !c.HasGatewayCredentials() {
		return nil, apperrors.ErrGatewaySecretNotConfigured
	}
	return &tenant.GatewayCredentials{
		KeyID:  c.GatewayAPIKey,
		Secret: c.GatewayAPISecret,
	}, nil
}

// Mock gateway; counts calls to assert credentials fail before any remote I/O
type mockGateway struct {
	mu               sync.Mutex
	createOrderCalls int
	refundCalls      int
	createOrderError error
	refundError      error
	nextOrderID      string
	nextRefundID     string
}

func (m *mockGateway) CreateOrder(ctx context.Context, creds *tenant.GatewayCredentials, req *gateway.CreateOrderRequest) (*gateway.OrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createOrderCalls++
	if m.createOrderError != nil {
		return nil, m.createOrderError
	}
	return &gateway.OrderResponse{
		ID:       fmt.Sprintf("%s_%d", m.nextOrderID, m.createOrderCalls),
		Entity:   "order",
		Amount:   req.AmountPaise,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (m *mockGateway) Refund(ctx context.Context, creds *tenant.GatewayCredentials, paymentID string, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refundCalls++
	if m.refundError != nil {
		return nil, m.refundError
	}
	var amount int64
	if req.AmountPaise != nil {
		amount = *req.AmountPaise
	}
	return &gateway.RefundResponse{
		ID:        m.nextRefundID,
		Entity:    "refund",
		Amount:    amount,
		PaymentID: paymentID,
		Status:    "processed",
	}, nil
}

func testSignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ = Describe("SettlementService", func() {
	const (
		clientID      = int64(1)
		otherClientID = int64(2)
		orderID       = int64(100)
		secret        = "test_gateway_secret"
		keyID         = "rzp_test_key"
	)

	var (
		service      *settlement.Service
		paymentsRepo *mockPaymentRepository
		ordersRepo   *mockOrderRepository
		tenants      *mockCredentialResolver
		gw           *mockGateway
		logger       *slog.Logger
		ctx          context.Context
	)

	newOrder := func(status string) *order.PurchaseOrder {
		return &order.PurchaseOrder{
			PurchaseOrderID:     orderID,
			ClientID:            clientID,
			VendorNumber:        "VND-42",
			PurchaseOrderStatus: status,
		}
	}

	newSummary := func(grandTotal int64) *order.OrderSummary {
		return &order.OrderSummary{
			OrderSummaryID: 1,
			EntityType:     payment.EntityTypePurchaseOrder,
			EntityID:       orderID,
			GrandTotal:     decimal.NewFromInt(grandTotal),
			PendingAmount:  decimal.NewFromInt(grandTotal),
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		paymentsRepo = newMockPaymentRepository()
		ordersRepo = newMockOrderRepository()
		tenants = &mockCredentialResolver{
			clients: map[int64]*tenantmodel.Client{
				clientID: {
					ClientID:         clientID,
					ClientName:       "Acme Traders",
					SupportEmail:     "support@acme.example.com",
					GatewayAPIKey:    keyID,
					GatewayAPISecret: secret,
				},
				otherClientID: {
					ClientID:         otherClientID,
					ClientName:       "Bare Supplies",
					GatewayAPIKey:    "rzp_test_other",
					GatewayAPISecret: "other_secret",
				},
			},
		}
		gw = &mockGateway{nextOrderID: "order_abc123", nextRefundID: "rfnd_xyz789"}

		eventBus := events.NewEventBus(logger)
		service = settlement.NewService(paymentsRepo, ordersRepo, tenants, gw,
			settlement.JSONReceiptRenderer{}, eventBus, true, logger)
	})

	Describe("CreateOrder", func() {
		BeforeEach(func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(1000)
		})

		Context("with an explicit amount", func() {
			It("mints a gateway order and persists a CREATED payment", func() {
				resp, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.ExplicitAmount(60000),
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.GatewayOrderID).To(HavePrefix("order_abc123"))
				Expect(resp.KeyID).To(Equal(keyID))
				Expect(resp.AmountPaise).To(Equal(int64(60000)))
				Expect(resp.CompanyName).To(Equal("Acme Traders"))

				p, getErr := paymentsRepo.GetByGatewayOrderID(resp.GatewayOrderID)
				Expect(getErr).ToNot(HaveOccurred())
				Expect(p.PaymentStatus).To(Equal(payment.StatusCreated))
				Expect(p.AmountPaidPaise).To(BeZero())
				Expect(p.OrderAmountPaise).To(Equal(int64(60000)))
			})
		})

		Context("with the remaining balance", func() {
			It("charges grand total minus net paid", func() {
				captured := payment.NewManualPayment(payment.EntityTypePurchaseOrder, orderID,
					40000, "INR", payment.MethodCash, time.Now(), nil, nil, "", true, clientID, "tester")
				Expect(paymentsRepo.Create(captured)).To(Succeed())

				resp, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.RemainingBalance(),
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.AmountPaise).To(Equal(int64(60000)))
			})
		})

		Context("when the order is not pending approval", func() {
			It("rejects the first payment", func() {
				ordersRepo.orders[orderID] = newOrder(order.StatusApproved)

				_, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.ExplicitAmount(1000),
				})

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidOrderState))
				Expect(gw.createOrderCalls).To(BeZero())
			})
		})

		Context("when the order is approved and the request is a follow-up", func() {
			It("accepts the follow-up payment", func() {
				ordersRepo.orders[orderID] = newOrder(order.StatusApprovedWithPartialPayment)

				resp, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.ExplicitAmount(1000),
					FollowUp:   true,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.GatewayOrderID).ToNot(BeEmpty())
			})
		})

		Context("when the tenant has no gateway credentials", func() {
			It("fails before any gateway call", func() {
				tenants.clients[clientID].GatewayAPISecret = "   "

				_, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.ExplicitAmount(1000),
				})

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayNotConfigured))
				Expect(gw.createOrderCalls).To(BeZero())
				Expect(len(paymentsRepo.payments)).To(BeZero())
			})
		})

		Context("when the order belongs to another tenant", func() {
			It("denies access", func() {
				_, err := service.CreateOrder(ctx, otherClientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.ExplicitAmount(1000),
				})

				Expect(err).To(MatchError(apperrors.ErrAccessDeniedToPurchaseOrder))
			})
		})
	})

	Describe("VerifyPayment", func() {
		var gatewayOrderID string

		BeforeEach(func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(1000)

			resp, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
				EntityType: payment.EntityTypePurchaseOrder,
				EntityID:   orderID,
				Amount:     settlement.ExplicitAmount(60000),
			})
			Expect(err).ToNot(HaveOccurred())
			gatewayOrderID = resp.GatewayOrderID
		})

		Context("with a valid signature covering the full amount", func() {
			It("captures the payment and approves the order", func() {
				ordersRepo.summaries[orderID] = newSummary(600)

				result, err := service.VerifyPayment(ctx, clientID, &settlement.VerifyPaymentRequest{
					GatewayOrderID:   gatewayOrderID,
					GatewayPaymentID: "pay_111",
					Signature:        testSignature(gatewayOrderID, "pay_111", secret),
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Success).To(BeTrue())
				Expect(result.OrderStatus).To(Equal(order.StatusApproved))
				Expect(result.PendingAmount.IsZero()).To(BeTrue())

				p, _ := paymentsRepo.GetByGatewayOrderID(gatewayOrderID)
				Expect(p.PaymentStatus).To(Equal(payment.StatusCaptured))
				Expect(p.AmountPaidPaise).To(Equal(int64(60000)))
				Expect(p.CapturedAt).ToNot(BeNil())
			})
		})

		Context("with a partial amount", func() {
			It("leaves a pending balance and marks the order partially paid", func() {
				result, err := service.VerifyPayment(ctx, clientID, &settlement.VerifyPaymentRequest{
					GatewayOrderID:   gatewayOrderID,
					GatewayPaymentID: "pay_222",
					Signature:        testSignature(gatewayOrderID, "pay_222", secret),
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Success).To(BeTrue())
				Expect(result.OrderStatus).To(Equal(order.StatusApprovedWithPartialPayment))
				Expect(result.PendingAmount.Equal(decimal.NewFromInt(400))).To(BeTrue())
			})
		})

		Context("with an invalid signature", func() {
			It("returns a failed result without an error and marks the payment FAILED", func() {
				result, err := service.VerifyPayment(ctx, clientID, &settlement.VerifyPaymentRequest{
					GatewayOrderID:   gatewayOrderID,
					GatewayPaymentID: "pay_333",
					Signature:        "deadbeef",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Success).To(BeFalse())
				Expect(result.Message).To(ContainSubstring("Invalid signature"))

				p, _ := paymentsRepo.GetByGatewayOrderID(gatewayOrderID)
				Expect(p.PaymentStatus).To(Equal(payment.StatusFailed))
				Expect(p.AmountPaidPaise).To(BeZero())

				netPaid, _ := paymentsRepo.NetPaidPaise(payment.EntityTypePurchaseOrder, orderID)
				Expect(netPaid).To(BeZero())
			})
		})

		Context("when the tenant has no gateway credentials", func() {
			It("fails with the configuration error before reading the ledger", func() {
				tenants.clients[clientID].GatewayAPISecret = "   "

				_, err := service.VerifyPayment(ctx, clientID, &settlement.VerifyPaymentRequest{
					GatewayOrderID:   "order_unknown",
					GatewayPaymentID: "pay_555",
					Signature:        "sig",
				})

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayNotConfigured))
			})
		})

		Context("when the gateway order is unknown", func() {
			It("returns PAYMENT_ORDER_NOT_FOUND", func() {
				_, err := service.VerifyPayment(ctx, clientID, &settlement.VerifyPaymentRequest{
					GatewayOrderID:   "order_unknown",
					GatewayPaymentID: "pay_444",
					Signature:        "sig",
				})

				Expect(err).To(MatchError(apperrors.ErrPaymentOrderNotFound))
			})
		})

		Context("when two captures for the full balance race", func() {
			It("reports OVERPAYMENT_DETECTED exactly once", func() {
				ordersRepo.orders[orderID] = newOrder(order.StatusApprovedWithPartialPayment)
				ordersRepo.summaries[orderID] = newSummary(600)

				first, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.ExplicitAmount(60000),
					FollowUp:   true,
				})
				Expect(err).ToNot(HaveOccurred())

				second, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
					EntityType: payment.EntityTypePurchaseOrder,
					EntityID:   orderID,
					Amount:     settlement.ExplicitAmount(60000),
					FollowUp:   true,
				})
				Expect(err).ToNot(HaveOccurred())

				verify := func(orderRef, payRef string) error {
					_, verr := service.VerifyPayment(ctx, clientID, &settlement.VerifyPaymentRequest{
						GatewayOrderID:   orderRef,
						GatewayPaymentID: payRef,
						Signature:        testSignature(orderRef, payRef, secret),
						FollowUp:         true,
					})
					return verr
				}

				var wg sync.WaitGroup
				results := make([]error, 2)
				wg.Add(2)
				go func() {
					defer wg.Done()
					results[0] = verify(first.GatewayOrderID, "pay_race_1")
				}()
				go func() {
					defer wg.Done()
					results[1] = verify(second.GatewayOrderID, "pay_race_2")
				}()
				wg.Wait()

				overpayments := 0
				successes := 0
				for _, verr := range results {
					if verr == nil {
						successes++
						continue
					}
					appErr, ok := apperrors.IsAppError(verr)
					Expect(ok).To(BeTrue())
					if appErr.Code == apperrors.ErrCodeOverpaymentDetected {
						overpayments++
					}
				}
				Expect(successes).To(Equal(1))
				Expect(overpayments).To(Equal(1))
			})
		})
	})

	Describe("RecordCashPayment", func() {
		BeforeEach(func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(1000)
		})

		It("walks an order to APPROVED through partial payments", func() {
			result, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 60000,
				PaymentDate: time.Now().Add(-time.Hour),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.OrderStatus).To(Equal(order.StatusApprovedWithPartialPayment))
			Expect(result.PendingAmount.Equal(decimal.NewFromInt(400))).To(BeTrue())

			result, err = service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 40000,
				PaymentDate: time.Now().Add(-time.Hour),
				FollowUp:    true,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.OrderStatus).To(Equal(order.StatusApproved))
			Expect(result.PendingAmount.IsZero()).To(BeTrue())
		})

		It("selects UPI when a transaction reference is supplied", func() {
			result, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:       payment.EntityTypePurchaseOrder,
				EntityID:         orderID,
				AmountPaise:      10000,
				PaymentDate:      time.Now().Add(-time.Hour),
				UPITransactionID: "upi-ref-1",
			})
			Expect(err).ToNot(HaveOccurred())

			p, getErr := paymentsRepo.GetByID(result.PaymentID)
			Expect(getErr).ToNot(HaveOccurred())
			Expect(*p.PaymentMethod).To(Equal(payment.MethodUPI))
			Expect(p.PaymentGateway).To(Equal(payment.GatewayManual))
			Expect(p.PaymentStatus).To(Equal(payment.StatusCaptured))
		})

		It("rejects amounts above the pending balance", func() {
			_, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 100001,
				PaymentDate: time.Now().Add(-time.Hour),
			})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodePaymentExceedsPending))
			Expect(len(paymentsRepo.payments)).To(BeZero())
		})

		It("requires a payment date", func() {
			_, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 10000,
			})

			Expect(err).To(MatchError(apperrors.ErrPaymentDateRequired))
		})
	})

	Describe("InitiateRefund", func() {
		var capturedID int64

		BeforeEach(func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(600)

			resp, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
				EntityType: payment.EntityTypePurchaseOrder,
				EntityID:   orderID,
				Amount:     settlement.ExplicitAmount(60000),
			})
			Expect(err).ToNot(HaveOccurred())

			result, err := service.VerifyPayment(ctx, clientID, &settlement.VerifyPaymentRequest{
				GatewayOrderID:   resp.GatewayOrderID,
				GatewayPaymentID: "pay_refund_target",
				Signature:        testSignature(resp.GatewayOrderID, "pay_refund_target", secret),
			})
			Expect(err).ToNot(HaveOccurred())
			capturedID = result.PaymentID
		})

		It("partially refunds and restores the pending amount", func() {
			amount := int64(20000)
			result, err := service.InitiateRefund(ctx, clientID, &settlement.RefundRequest{
				PaymentID:   capturedID,
				AmountPaise: &amount,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.RefundID).To(Equal("rfnd_xyz789"))
			Expect(result.PaymentStatus).To(Equal(payment.StatusPartiallyRefunded))
			Expect(result.OrderPendingAmount.Equal(decimal.NewFromInt(200))).To(BeTrue())

			// The order status is not reverted by a refund
			po, _ := ordersRepo.GetByID(orderID)
			Expect(po.PurchaseOrderStatus).To(Equal(order.StatusApproved))
		})

		It("fully refunds and reaches the terminal REFUNDED state", func() {
			result, err := service.InitiateRefund(ctx, clientID, &settlement.RefundRequest{
				PaymentID: capturedID,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.RefundedPaise).To(Equal(int64(60000)))
			Expect(result.PaymentStatus).To(Equal(payment.StatusRefunded))
			Expect(result.OrderPendingAmount.Equal(decimal.NewFromInt(600))).To(BeTrue())

			// A second refund attempt must fail
			_, err = service.InitiateRefund(ctx, clientID, &settlement.RefundRequest{PaymentID: capturedID})
			Expect(err).To(MatchError(apperrors.ErrCannotRefund))
		})

		It("rejects refunds above the refundable remainder without mutating state", func() {
			amount := int64(70000)
			_, err := service.InitiateRefund(ctx, clientID, &settlement.RefundRequest{
				PaymentID:   capturedID,
				AmountPaise: &amount,
			})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeRefundExceedsRefundable))
			Expect(gw.refundCalls).To(BeZero())

			p, _ := paymentsRepo.GetByID(capturedID)
			Expect(p.AmountRefundedPaise).To(BeZero())
			Expect(p.PaymentStatus).To(Equal(payment.StatusCaptured))
		})

		It("leaves local state untouched when the gateway refund fails", func() {
			gw.refundError = apperrors.NewGatewayError("gateway returned status 502: upstream busy", nil)

			amount := int64(20000)
			_, err := service.InitiateRefund(ctx, clientID, &settlement.RefundRequest{
				PaymentID:   capturedID,
				AmountPaise: &amount,
			})

			Expect(err).To(HaveOccurred())

			p, _ := paymentsRepo.GetByID(capturedID)
			Expect(p.AmountRefundedPaise).To(BeZero())
			Expect(p.PaymentStatus).To(Equal(payment.StatusCaptured))

			summary, _ := ordersRepo.GetSummaryByEntity(payment.EntityTypePurchaseOrder, orderID)
			Expect(summary.PendingAmount.IsZero()).To(BeTrue())
		})

		It("requires gateway credentials even for cash refunds", func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(1200)

			cash, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 30000,
				PaymentDate: time.Now().Add(-time.Hour),
			})
			Expect(err).ToNot(HaveOccurred())

			tenants.clients[clientID].GatewayAPISecret = "   "

			_, err = service.InitiateRefund(ctx, clientID, &settlement.RefundRequest{
				PaymentID: cash.PaymentID,
			})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayNotConfigured))

			p, _ := paymentsRepo.GetByID(cash.PaymentID)
			Expect(p.AmountRefundedPaise).To(BeZero())
			Expect(p.PaymentStatus).To(Equal(payment.StatusCaptured))
		})

		It("rejects a refund on a payment that was never captured", func() {
			resp, err := service.CreateOrder(ctx, clientID, &settlement.CreateOrderRequest{
				EntityType: payment.EntityTypePurchaseOrder,
				EntityID:   orderID,
				Amount:     settlement.ExplicitAmount(10000),
				FollowUp:   true,
			})
			Expect(err).ToNot(HaveOccurred())

			p, _ := paymentsRepo.GetByGatewayOrderID(resp.GatewayOrderID)
			_, err = service.InitiateRefund(ctx, clientID, &settlement.RefundRequest{PaymentID: p.PaymentID})
			Expect(err).To(MatchError(apperrors.ErrCannotRefund))
		})
	})

	Describe("IsPaid", func() {
		It("is false for unknown entities", func() {
			Expect(service.IsPaid(ctx, payment.EntityTypePurchaseOrder, 9999)).To(BeFalse())
		})

		It("is true once a payment has been captured", func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(600)

			_, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 60000,
				PaymentDate: time.Now().Add(-time.Hour),
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.IsPaid(ctx, payment.EntityTypePurchaseOrder, orderID)).To(BeTrue())
		})
	})

	Describe("PaymentReceipt", func() {
		It("renders a JSON receipt for a captured payment", func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(600)

			result, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 60000,
				PaymentDate: time.Now().Add(-time.Hour),
			})
			Expect(err).ToNot(HaveOccurred())

			rendered, contentType, err := service.PaymentReceipt(ctx, clientID, result.PaymentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(contentType).To(Equal("application/json"))
			Expect(string(rendered)).To(ContainSubstring("Acme Traders"))
			Expect(string(rendered)).To(ContainSubstring("VND-42"))
		})

		It("denies receipts across tenants", func() {
			ordersRepo.orders[orderID] = newOrder(order.StatusPendingApproval)
			ordersRepo.summaries[orderID] = newSummary(600)

			result, err := service.RecordCashPayment(ctx, clientID, &settlement.CashPaymentRequest{
				EntityType:  payment.EntityTypePurchaseOrder,
				EntityID:    orderID,
				AmountPaise: 60000,
				PaymentDate: time.Now().Add(-time.Hour),
			})
			Expect(err).ToNot(HaveOccurred())

			_, _, err = service.PaymentReceipt(ctx, otherClientID, result.PaymentID)
			Expect(err).To(MatchError(apperrors.ErrAccessDeniedToPayment))
		})
	})
})
