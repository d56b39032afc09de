// Package processor holds the outbound side of the settlement protocol:
// the mandatory second-phase "approve" call back to the payment processor.
package processor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/model"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
)

// Approver issues the second-phase confirmation. Implementations must have
// bounded timeouts; callers treat failures as soft.
type Approver interface {
	Approve(ctx context.Context, n *model.Notification) error
}

// Client is the HTTP approver. The processor exposes no SDK; this echoes
// the notification fields verbatim plus our credentials, per its contract.
type Client struct {
	cfg    config.PaymentConfig
	client *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Approve echoes the received transaction back to the processor together
// with the merchant credentials. The processor only finalizes the
// transaction once this call lands.
func (c *Client) Approve(ctx context.Context, n *model.Notification) error {
	form := url.Values{}
	form.Set("pageCode", c.cfg.PageCode)
	form.Set("userId", c.cfg.UserID)
	form.Set("apiKey", c.cfg.APIKey)

	form.Set("transactionId", n.TransactionID)
	form.Set("transactionToken", n.TransactionToken)
	form.Set("asmachta", n.Asmachta)
	form.Set("sum", n.Sum)
	form.Set("paymentsNum", n.PaymentsNum)
	form.Set("paymentType", n.PaymentType)
	form.Set("firstPaymentSum", n.FirstPaymentSum)
	form.Set("periodicalPaymentSum", n.PeriodicalSum)
	form.Set("cardSuffix", n.CardSuffix)
	form.Set("cardType", n.CardType)
	form.Set("cardTypeCode", n.CardTypeCode)
	form.Set("cardBrand", n.CardBrand)
	form.Set("cardBrandCode", n.CardBrandCode)
	form.Set("fullName", n.FullName)
	form.Set("payerPhone", n.PayerPhone)
	form.Set("payerEmail", n.PayerEmail)
	form.Set("processId", n.ProcessID)
	form.Set("processToken", n.ProcessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ApproveURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("approve call returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

var _ Approver = (*Client)(nil)
