package model

import (
	"encoding/json"
	"net/url"
	"time"
)

// StatusSuccess is the only status code treated as a settled payment.
// Parsing fails closed: unknown or missing codes are "not success".
const StatusSuccess = "1"

// Notification is the processor's server-to-server payload, delivered
// form-encoded or as JSON depending on the page configuration. SessionID is
// the caller-supplied correlation field echoed back by the processor.
type Notification struct {
	Status           string `json:"status" form:"status"`
	TransactionID    string `json:"transactionId" form:"transactionId"`
	TransactionToken string `json:"transactionToken" form:"transactionToken"`
	Asmachta         string `json:"asmachta" form:"asmachta"`
	Sum              string `json:"sum" form:"sum"`
	PaymentsNum      string `json:"paymentsNum" form:"paymentsNum"`
	PaymentType      string `json:"paymentType" form:"paymentType"`
	FirstPaymentSum  string `json:"firstPaymentSum" form:"firstPaymentSum"`
	PeriodicalSum    string `json:"periodicalPaymentSum" form:"periodicalPaymentSum"`
	CardSuffix       string `json:"cardSuffix" form:"cardSuffix"`
	CardType         string `json:"cardType" form:"cardType"`
	CardTypeCode     string `json:"cardTypeCode" form:"cardTypeCode"`
	CardBrand        string `json:"cardBrand" form:"cardBrand"`
	CardBrandCode    string `json:"cardBrandCode" form:"cardBrandCode"`
	FullName         string `json:"fullName" form:"fullName"`
	PayerPhone       string `json:"payerPhone" form:"payerPhone"`
	PayerEmail       string `json:"payerEmail" form:"payerEmail"`
	ProcessID        string `json:"processId" form:"processId"`
	ProcessToken     string `json:"processToken" form:"processToken"`
	SessionID        string `json:"cField1" form:"cField1"`
}

// Success reports whether the notification marks a settled payment.
func (n *Notification) Success() bool {
	return n.Status == StatusSuccess
}

// FromValues builds a Notification from a form-encoded webhook body.
func FromValues(values url.Values) *Notification {
	return &Notification{
		Status:           values.Get("status"),
		TransactionID:    values.Get("transactionId"),
		TransactionToken: values.Get("transactionToken"),
		Asmachta:         values.Get("asmachta"),
		Sum:              values.Get("sum"),
		PaymentsNum:      values.Get("paymentsNum"),
		PaymentType:      values.Get("paymentType"),
		FirstPaymentSum:  values.Get("firstPaymentSum"),
		PeriodicalSum:    values.Get("periodicalPaymentSum"),
		CardSuffix:       values.Get("cardSuffix"),
		CardType:         values.Get("cardType"),
		CardTypeCode:     values.Get("cardTypeCode"),
		CardBrand:        values.Get("cardBrand"),
		CardBrandCode:    values.Get("cardBrandCode"),
		FullName:         values.Get("fullName"),
		PayerPhone:       values.Get("payerPhone"),
		PayerEmail:       values.Get("payerEmail"),
		ProcessID:        values.Get("processId"),
		ProcessToken:     values.Get("processToken"),
		SessionID:        values.Get("cField1"),
	}
}

// Record is the payment snapshot attached to the session on settlement.
type Record struct {
	TransactionID    string    `json:"transactionId"`
	TransactionToken string    `json:"transactionToken"`
	Asmachta         string    `json:"asmachta"`
	Sum              string    `json:"sum"`
	PaymentsNum      string    `json:"paymentsNum"`
	CardSuffix       string    `json:"cardSuffix"`
	CardType         string    `json:"cardType"`
	CardBrand        string    `json:"cardBrand"`
	PayerName        string    `json:"payerName"`
	PayerPhone       string    `json:"payerPhone"`
	PayerEmail       string    `json:"payerEmail"`
	SettledAt        time.Time `json:"settledAt"`
}

// RecordFrom snapshots the notification into the stored payment record.
func RecordFrom(n *Notification, settledAt time.Time) (json.RawMessage, error) {
	return json.Marshal(Record{
		TransactionID:    n.TransactionID,
		TransactionToken: n.TransactionToken,
		Asmachta:         n.Asmachta,
		Sum:              n.Sum,
		PaymentsNum:      n.PaymentsNum,
		CardSuffix:       n.CardSuffix,
		CardType:         n.CardType,
		CardBrand:        n.CardBrand,
		PayerName:        n.FullName,
		PayerPhone:       n.PayerPhone,
		PayerEmail:       n.PayerEmail,
		SettledAt:        settledAt,
	})
}
