package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
)

// fallbackAmount is charged when an appointment somehow has no stored price.
const fallbackAmount int64 = 50000

var requestTypes = map[appointment.PaymentMethod]string{
	appointment.PayWallet: "captureWallet",
	appointment.PayATM:    "payWithATM",
	appointment.PayCard:   "payWithCC",
	appointment.PayVTS:    "payWithVTS",
}

// Client talks to the wallet gateway's create-payment API. Credentials and
// URLs are injected at construction; nothing here reads the environment.
type Client struct {
	cfg    config.WalletConfig
	http   *http.Client
	logger zerolog.Logger
}

func NewClient(cfg config.WalletConfig, logger zerolog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type CreateResult struct {
	PayURL  string
	OrderID string
	Amount  int64
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	Amount      string `json:"amount"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Signature   string `json:"signature"`
	Lang        string `json:"lang"`
}

type createResponse struct {
	PayURL     string `json:"payUrl"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

// CreatePayment initiates a gateway payment for an appointment and returns
// the URL the patient is redirected to. The order id embeds the appointment
// id so the IPN callback can be mapped back.
func (c *Client) CreatePayment(ctx context.Context, appt *appointment.Appointment) (*CreateResult, error) {
	amount := appt.ServicePrice
	if amount <= 0 {
		amount = fallbackAmount
	}

	orderID := fmt.Sprintf("%s_%d", appt.ID, time.Now().UnixMilli())
	requestID := orderID
	orderInfo := fmt.Sprintf("Appointment payment #%s", appt.ID)

	requestType, ok := requestTypes[appt.PaymentMethod]
	if !ok {
		requestType = "captureWallet"
	}
	extraData := ""

	signature := c.sign(amount, extraData, orderID, orderInfo, requestID, requestType)

	payload := createRequest{
		PartnerCode: c.cfg.PartnerCode,
		AccessKey:   c.cfg.AccessKey,
		RequestID:   requestID,
		OrderID:     orderID,
		OrderInfo:   orderInfo,
		RedirectURL: c.cfg.RedirectURL,
		IPNURL:      c.cfg.IPNURL,
		Amount:      strconv.FormatInt(amount, 10),
		RequestType: requestType,
		ExtraData:   extraData,
		Signature:   signature,
		Lang:        "vi",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if out.PayURL == "" {
		return nil, fmt.Errorf("gateway rejected payment: code=%d message=%q", out.ResultCode, out.Message)
	}

	c.logger.Info().
		Str("order_id", orderID).
		Int64("amount", amount).
		Msg("gateway payment created")

	return &CreateResult{PayURL: out.PayURL, OrderID: orderID, Amount: amount}, nil
}

// sign produces the HMAC-SHA256 hex signature over the gateway's fixed
// field concatenation. Field order is part of the protocol.
func (c *Client) sign(amount int64, extraData, orderID, orderInfo, requestID, requestType string) string {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		c.cfg.AccessKey, amount, extraData, c.cfg.IPNURL, orderID, orderInfo,
		c.cfg.PartnerCode, c.cfg.RedirectURL, requestID, requestType,
	)

	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
