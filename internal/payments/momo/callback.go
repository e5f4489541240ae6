package momo

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Callback is the payload of both the browser redirect and the IPN
type Callback struct {
	PartnerCode  string      `json:"partnerCode"`
	OrderID      string      `json:"orderId"`
	RequestID    string      `json:"requestId"`
	Amount       json.Number `json:"amount"`
	OrderInfo    string      `json:"orderInfo"`
	OrderType    string      `json:"orderType"`
	TransID      json.Number `json:"transId"`
	ResultCode   json.Number `json:"resultCode"`
	Message      string      `json:"message"`
	PayType      string      `json:"payType"`
	ResponseTime json.Number `json:"responseTime"`
	ExtraData    string      `json:"extraData"`
	Signature    string      `json:"signature"`
}

// CallbackFromQuery reads the redirect query string
func CallbackFromQuery(q url.Values) *Callback {
	return &Callback{
		PartnerCode:  q.Get("partnerCode"),
		OrderID:      q.Get("orderId"),
		RequestID:    q.Get("requestId"),
		Amount:       json.Number(q.Get("amount")),
		OrderInfo:    q.Get("orderInfo"),
		OrderType:    q.Get("orderType"),
		TransID:      json.Number(q.Get("transId")),
		ResultCode:   json.Number(q.Get("resultCode")),
		Message:      q.Get("message"),
		PayType:      q.Get("payType"),
		ResponseTime: json.Number(q.Get("responseTime")),
		ExtraData:    q.Get("extraData"),
		Signature:    q.Get("signature"),
	}
}

// RawSignature is the string the provider signs, keys in alphabetical order
func (cb *Callback) RawSignature(accessKey string) string {
	return fmt.Sprintf("accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		accessKey, cb.Amount, cb.ExtraData, cb.Message, cb.OrderID, cb.OrderInfo, cb.OrderType,
		cb.PartnerCode, cb.PayType, cb.RequestID, cb.ResponseTime, cb.ResultCode, cb.TransID)
}

// Code returns the numeric result code, or -1 when it is missing
func (cb *Callback) Code() int64 {
	code, err := cb.ResultCode.Int64()
	if err != nil {
		return -1
	}
	return code
}

// AmountValue returns the paid amount, or 0 when it is missing
func (cb *Callback) AmountValue() int64 {
	amount, _ := cb.Amount.Int64()
	return amount
}

// Validate checks the fields the reconciler depends on
func (cb *Callback) Validate() error {
	if cb.RequestID == "" || cb.OrderID == "" {
		return fmt.Errorf("missing requestId or orderId")
	}
	if _, err := cb.ResultCode.Int64(); err != nil {
		return fmt.Errorf("invalid resultCode %q", cb.ResultCode)
	}
	return nil
}

// OrderRef builds the provider order id: "{orderID}_{unixMillis}". The suffix
// keeps retries of the same order unique on the provider side.
func OrderRef(orderID string, unixMillis int64) string {
	return orderID + "_" + strconv.FormatInt(unixMillis, 10)
}

// ParseOrderRef returns the order id part of a provider order id
func ParseOrderRef(ref string) (string, error) {
	idx := strings.LastIndex(ref, "_")
	if idx <= 0 {
		return "", fmt.Errorf("malformed order ref %q", ref)
	}
	if _, err := strconv.ParseInt(ref[idx+1:], 10, 64); err != nil {
		return "", fmt.Errorf("malformed order ref %q", ref)
	}
	return ref[:idx], nil
}
