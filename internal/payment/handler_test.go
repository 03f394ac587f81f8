package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

const testWebhookSecret = "whsec_test"

func newTestHandler(subs *MockSubscriptions) *Handler {
	svc := NewService(subs, nil, nil)
	return NewHandler(svc, NewRazorpayClient("rzp_test", "secret"), &StripeGateway{cfg: StripeConfig{
		SecretKey:     "sk_test",
		WebhookSecret: testWebhookSecret,
		Prices:        map[string]string{"monthly": "price_monthly"},
		FrontendURL:   "https://portiq.test",
	}})
}

func setupRouter(h *Handler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/stripe", h.StripeWebhook)

	authed := r.Group("/", func(c *gin.Context) {
		auth.SetIdentity(c, userID, "user@example.com")
		c.Next()
	})
	authed.POST("/payments/razorpay/verify", h.VerifyRazorpayPayment)
	authed.POST("/payments/stripe/checkout", h.CreateStripeCheckout)
	return r
}

func doPost(r http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func stripeSignature(payload string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// razorpayOrders serves GET /orders/{id} from a fixed set of orders.
func razorpayOrders(t *testing.T, orders map[string]string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		body, ok := orders[strings.TrimPrefix(r.URL.Path, "/orders/")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func orderJSON(id string, userID uuid.UUID, plan string, amount int64) string {
	return fmt.Sprintf(`{"id":"%s","amount":%d,"currency":"INR","status":"paid","notes":{"user_id":"%s","plan":"%s"}}`,
		id, amount, userID, plan)
}

func verifyBody(orderID, paymentID, plan string) string {
	return fmt.Sprintf(`{"razorpay_payment_id":"%s","razorpay_order_id":"%s","razorpay_signature":"%s","plan_id":"%s"}`,
		paymentID, orderID, razorpaySignature("secret", orderID, paymentID), plan)
}

func TestVerifyRazorpayPayment_Success(t *testing.T) {
	userID := uuid.New()
	subs := new(MockSubscriptions)
	subs.On("UpsertActiveSubscription", mock.Anything, userID, subscription.PlanMonthly,
		subscription.PaymentRefs{PaymentRef: "pay_1"}).Return(activeSubscription(userID, subscription.PlanMonthly), nil)

	h := newTestHandler(subs)
	h.razorpay.baseURL = razorpayOrders(t, map[string]string{
		"order_1": orderJSON("order_1", userID, "monthly", 49900),
	}).URL

	w := doPost(setupRouter(h, userID), "/payments/razorpay/verify", verifyBody("order_1", "pay_1", "monthly"), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscription activated"`)
	subs.AssertExpectations(t)
}

func TestVerifyRazorpayPayment_OrderMismatch(t *testing.T) {
	userID := uuid.New()
	otherUser := uuid.New()

	tests := []struct {
		name  string
		order string
		plan  string
	}{
		{"monthly order claimed as yearly", orderJSON("order_1", userID, "monthly", 49900), "yearly"},
		{"order belongs to another user", orderJSON("order_1", otherUser, "monthly", 49900), "monthly"},
		{"amount below plan price", orderJSON("order_1", userID, "yearly", 49900), "yearly"},
		{"order without notes", `{"id":"order_1","amount":49900,"currency":"INR","notes":[]}`, "monthly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := new(MockSubscriptions)
			h := newTestHandler(subs)
			h.razorpay.baseURL = razorpayOrders(t, map[string]string{"order_1": tt.order}).URL

			w := doPost(setupRouter(h, userID), "/payments/razorpay/verify", verifyBody("order_1", "pay_1", tt.plan), nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Payment verification failed"}`, w.Body.String())
			subs.AssertNotCalled(t, "UpsertActiveSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestVerifyRazorpayPayment_ReplayRejected(t *testing.T) {
	userID := uuid.New()
	refs := subscription.PaymentRefs{PaymentRef: "pay_1"}
	subs := new(MockSubscriptions)
	subs.On("UpsertActiveSubscription", mock.Anything, userID, subscription.PlanMonthly, refs).
		Return(activeSubscription(userID, subscription.PlanMonthly), nil).Once()
	subs.On("UpsertActiveSubscription", mock.Anything, userID, subscription.PlanMonthly, refs).
		Return(nil, fmt.Errorf("upsert active subscription: %w", subscription.ErrPaymentAlreadyApplied))

	h := newTestHandler(subs)
	h.razorpay.baseURL = razorpayOrders(t, map[string]string{
		"order_1": orderJSON("order_1", userID, "monthly", 49900),
	}).URL
	router := setupRouter(h, userID)
	body := verifyBody("order_1", "pay_1", "monthly")

	first := doPost(router, "/payments/razorpay/verify", body, nil)
	assert.Equal(t, http.StatusOK, first.Code)

	for i := 0; i < 2; i++ {
		again := doPost(router, "/payments/razorpay/verify", body, nil)
		assert.Equal(t, http.StatusConflict, again.Code)
		assert.JSONEq(t, `{"error":"This payment has already been applied"}`, again.Body.String())
	}
}

func TestVerifyRazorpayPayment_OrderLookupFails(t *testing.T) {
	subs := new(MockSubscriptions)
	h := newTestHandler(subs)
	h.razorpay.baseURL = razorpayOrders(t, map[string]string{}).URL

	w := doPost(setupRouter(h, uuid.New()), "/payments/razorpay/verify", verifyBody("order_missing", "pay_1", "monthly"), nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	subs.AssertNotCalled(t, "UpsertActiveSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyRazorpayPayment_BadSignature(t *testing.T) {
	subs := new(MockSubscriptions)

	body := `{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_1","razorpay_signature":"forged","plan_id":"monthly"}`
	w := doPost(setupRouter(newTestHandler(subs), uuid.New()), "/payments/razorpay/verify", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Payment verification failed"}`, w.Body.String())
	subs.AssertNotCalled(t, "UpsertActiveSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyRazorpayPayment_UnknownPlan(t *testing.T) {
	subs := new(MockSubscriptions)

	body := fmt.Sprintf(`{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_1","razorpay_signature":"%s","plan_id":"weekly"}`,
		razorpaySignature("secret", "order_1", "pay_1"))
	w := doPost(setupRouter(newTestHandler(subs), uuid.New()), "/payments/razorpay/verify", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	subs.AssertNotCalled(t, "UpsertActiveSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateStripeCheckout(t *testing.T) {
	userID := uuid.New()
	orig := newCheckoutSession
	defer func() { newCheckoutSession = orig }()

	var captured *stripe.CheckoutSessionParams
	newCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{URL: "https://checkout.stripe.test/cs_1"}, nil
	}

	w := doPost(setupRouter(newTestHandler(new(MockSubscriptions)), userID), "/payments/stripe/checkout", `{"plan_id":"monthly"}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://checkout.stripe.test/cs_1"}`, w.Body.String())
	require.NotNil(t, captured)
	assert.Equal(t, userID.String(), *captured.ClientReferenceID)
	assert.Equal(t, "monthly", captured.Metadata["plan"])
	assert.Equal(t, "price_monthly", *captured.LineItems[0].Price)
	assert.Equal(t, "user@example.com", *captured.CustomerEmail)
}

func TestCreateStripeCheckout_PlanWithoutPrice(t *testing.T) {
	w := doPost(setupRouter(newTestHandler(new(MockSubscriptions)), uuid.New()), "/payments/stripe/checkout", `{"plan_id":"yearly"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStripeWebhook_CheckoutCompleted(t *testing.T) {
	userID := uuid.New()
	payload := fmt.Sprintf(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"%s","metadata":{"plan":"monthly","user_id":"%s"},"subscription":"sub_1","customer_details":{"email":"payer@example.com"}}}}`,
		userID, userID)

	subs := new(MockSubscriptions)
	subs.On("UpsertActiveSubscription", mock.Anything, userID, subscription.PlanMonthly, subscription.PaymentRefs{
		PaymentRef:   "cs_1",
		RecurringRef: "sub_1",
	}).Return(activeSubscription(userID, subscription.PlanMonthly), nil)

	w := doPost(setupRouter(newTestHandler(subs), uuid.Nil), "/webhooks/stripe", payload,
		map[string]string{"Stripe-Signature": stripeSignature(payload, time.Now())})

	assert.Equal(t, http.StatusOK, w.Code)
	subs.AssertExpectations(t)
}

func TestStripeWebhook_CheckoutAlreadyApplied(t *testing.T) {
	userID := uuid.New()
	payload := fmt.Sprintf(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"%s","metadata":{"plan":"monthly","user_id":"%s"},"subscription":"sub_1"}}}`,
		userID, userID)

	subs := new(MockSubscriptions)
	subs.On("UpsertActiveSubscription", mock.Anything, userID, subscription.PlanMonthly, mock.Anything).
		Return(nil, subscription.ErrPaymentAlreadyApplied)

	w := doPost(setupRouter(newTestHandler(subs), uuid.Nil), "/webhooks/stripe", payload,
		map[string]string{"Stripe-Signature": stripeSignature(payload, time.Now())})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"already processed"}`, w.Body.String())
}

func TestStripeWebhook_SubscriptionDeleted(t *testing.T) {
	userID := uuid.New()
	payload := `{"id":"evt_2","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","object":"subscription"}}}`

	subs := new(MockSubscriptions)
	subs.On("FindByRecurringRef", mock.Anything, "sub_1").Return(activeSubscription(userID, subscription.PlanMonthly), nil)
	subs.On("CancelActiveSubscription", mock.Anything, userID).Return(true, nil)

	w := doPost(setupRouter(newTestHandler(subs), uuid.Nil), "/webhooks/stripe", payload,
		map[string]string{"Stripe-Signature": stripeSignature(payload, time.Now())})

	assert.Equal(t, http.StatusOK, w.Code)
	subs.AssertExpectations(t)
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	payload := `{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{}}}`
	subs := new(MockSubscriptions)

	w := doPost(setupRouter(newTestHandler(subs), uuid.Nil), "/webhooks/stripe", payload,
		map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	subs.AssertNotCalled(t, "UpsertActiveSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStripeWebhook_IgnoresOtherEvents(t *testing.T) {
	payload := `{"id":"evt_4","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`
	subs := new(MockSubscriptions)

	w := doPost(setupRouter(newTestHandler(subs), uuid.Nil), "/webhooks/stripe", payload,
		map[string]string{"Stripe-Signature": stripeSignature(payload, time.Now())})

	assert.Equal(t, http.StatusOK, w.Code)
}
