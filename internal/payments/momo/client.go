package momo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider result codes with special meaning. Everything else non-zero is a
// failure.
const (
	ResultSuccess          = 0
	ResultAuthorized       = 9000
	ResultInitiated        = 1000
	ResultProcessing       = 7000
	ResultProviderHandling = 7002
)

// IsSuccess reports a paid (or authorised) result
func IsSuccess(code int64) bool {
	return code == ResultSuccess || code == ResultAuthorized
}

// IsPending reports a result that is neither paid nor failed yet
func IsPending(code int64) bool {
	switch code {
	case ResultInitiated, ResultProcessing, ResultProviderHandling:
		return true
	}
	return false
}

type Config struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
	RedirectURL string
	IpnURL      string
	RequestType string
	Lang        string
	Timeout     time.Duration
}

// Client talks to the MoMo payment gateway v2 API
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type PaymentInput struct {
	RequestID string
	OrderRef  string
	Amount    int64
	OrderInfo string
	ExtraData string
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type CreatePaymentResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	ResponseTime int64  `json:"responseTime"`
	Message      string `json:"message"`
	ResultCode   int64  `json:"resultCode"`
	PayURL       string `json:"payUrl"`
	Deeplink     string `json:"deeplink,omitempty"`
	QRCodeURL    string `json:"qrCodeUrl,omitempty"`

	Raw string `json:"-"`
}

type queryRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type QueryStatusResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	ExtraData    string `json:"extraData"`
	Amount       int64  `json:"amount"`
	TransID      int64  `json:"transId"`
	PayType      string `json:"payType"`
	ResultCode   int64  `json:"resultCode"`
	Message      string `json:"message"`
	ResponseTime int64  `json:"responseTime"`

	Raw string `json:"-"`
}

// CreatePayment registers a payment and returns the pay URL. A non-zero
// result code is returned as a response, not an error.
func (c *Client) CreatePayment(ctx context.Context, input PaymentInput) (*CreatePaymentResponse, error) {
	raw := fmt.Sprintf("accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		c.config.AccessKey, input.Amount, input.ExtraData, c.config.IpnURL, input.OrderRef,
		input.OrderInfo, c.config.PartnerCode, c.config.RedirectURL, input.RequestID, c.config.RequestType)

	body := createRequest{
		PartnerCode: c.config.PartnerCode,
		RequestID:   input.RequestID,
		Amount:      input.Amount,
		OrderID:     input.OrderRef,
		OrderInfo:   input.OrderInfo,
		RedirectURL: c.config.RedirectURL,
		IpnURL:      c.config.IpnURL,
		RequestType: c.config.RequestType,
		ExtraData:   input.ExtraData,
		Lang:        c.config.Lang,
		Signature:   c.Sign(raw),
	}

	var resp CreatePaymentResponse
	rawResp, err := c.post(ctx, "/v2/gateway/api/create", body, &resp)
	if err != nil {
		return nil, err
	}
	resp.Raw = rawResp
	return &resp, nil
}

// QueryStatus asks the provider for the current state of a payment
func (c *Client) QueryStatus(ctx context.Context, orderRef, requestID string) (*QueryStatusResponse, error) {
	raw := fmt.Sprintf("accessKey=%s&orderId=%s&partnerCode=%s&requestId=%s",
		c.config.AccessKey, orderRef, c.config.PartnerCode, requestID)

	body := queryRequest{
		PartnerCode: c.config.PartnerCode,
		RequestID:   requestID,
		OrderID:     orderRef,
		Lang:        c.config.Lang,
		Signature:   c.Sign(raw),
	}

	var resp QueryStatusResponse
	rawResp, err := c.post(ctx, "/v2/gateway/api/query", body, &resp)
	if err != nil {
		return nil, err
	}
	resp.Raw = rawResp
	return &resp, nil
}

// Sign returns the hex HMAC-SHA256 of raw under the partner secret key
func (c *Client) Sign(raw string) string {
	mac := hmac.New(sha256.New, []byte(c.config.SecretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallback checks the signature of a redirect or IPN payload. Hex case
// is ignored.
func (c *Client) VerifyCallback(cb *Callback) bool {
	if cb == nil || cb.Signature == "" {
		return false
	}
	expected := c.Sign(cb.RawSignature(c.config.AccessKey))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(cb.Signature)))
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal momo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.config.Endpoint, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build momo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call momo %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read momo response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return "", fmt.Errorf("decode momo response (status %d): %w", resp.StatusCode, err)
	}
	return string(data), nil
}
