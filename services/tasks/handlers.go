package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	invoiceRepo "marketplace/database/repository/invoice"
	orderRepo "marketplace/database/repository/order"
	pipelineRepo "marketplace/database/repository/pipeline"
	"marketplace/models"
	"marketplace/services/invoice"
	"marketplace/services/mail"
	"marketplace/services/storage"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ConfirmationEnqueuer queues the email stage once the invoice exists.
type ConfirmationEnqueuer interface {
	EnqueueConfirmation(ctx context.Context, p ChainPayload) error
}

// ChainHandler runs both stages of the order chain and records their outcome.
type ChainHandler struct {
	orders   orderRepo.OrderRepository
	invoices invoiceRepo.InvoiceRepository
	chains   pipelineRepo.ChainRepository
	blobs    storage.BlobStore
	renderer *invoice.Renderer
	mailer   mail.Mailer
	next     ConfirmationEnqueuer
	maxRetry int
	logger   *zap.Logger

	now       func() time.Time
	retryInfo func(ctx context.Context) (retried, maxRetry int)
}

type HandlerDeps struct {
	Orders   orderRepo.OrderRepository
	Invoices invoiceRepo.InvoiceRepository
	Chains   pipelineRepo.ChainRepository
	Blobs    storage.BlobStore
	Renderer *invoice.Renderer
	Mailer   mail.Mailer
	Next     ConfirmationEnqueuer
	MaxRetry int
	Logger   *zap.Logger
}

func NewChainHandler(d HandlerDeps) *ChainHandler {
	h := &ChainHandler{
		orders:   d.Orders,
		invoices: d.Invoices,
		chains:   d.Chains,
		blobs:    d.Blobs,
		renderer: d.Renderer,
		mailer:   d.Mailer,
		next:     d.Next,
		maxRetry: d.MaxRetry,
		logger:   d.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	h.retryInfo = h.asynqRetryInfo
	return h
}

// Register routes both task types on mux.
func (h *ChainHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeGenerateInvoice, h.HandleGenerateInvoice)
	mux.HandleFunc(TypeSendConfirmation, h.HandleSendConfirmation)
}

// HandleGenerateInvoice renders and stores the invoice, then queues the email stage.
func (h *ChainHandler) HandleGenerateInvoice(ctx context.Context, task *asynq.Task) error {
	p, err := parsePayload(task)
	if err != nil {
		return err
	}
	chain, err := h.chains.Get(ctx, p.OrderID)
	if err != nil {
		return h.chainError(p.OrderID, err)
	}
	// A redelivered task must not move a finished stage back to running.
	if chain.Stages.Invoice.Status == models.StageSucceeded {
		h.logger.Info("Invoice stage already succeeded", zap.String("orderID", p.OrderID))
		h.queueConfirmation(ctx, p)
		return nil
	}
	if err := h.chains.StartAttempt(ctx, p.OrderID, models.StageInvoice); err != nil {
		return h.chainError(p.OrderID, err)
	}

	if err := h.generateInvoice(ctx, p); err != nil {
		h.recordRetryable(ctx, p.OrderID, models.StageInvoice, err)
		return err
	}
	if err := h.chains.Finish(ctx, p.OrderID, models.StageInvoice, models.StageSucceeded, ""); err != nil {
		return h.chainError(p.OrderID, err)
	}
	h.logger.Info("Invoice generated", zap.String("orderID", p.OrderID))
	h.queueConfirmation(ctx, p)
	return nil
}

// queueConfirmation queues the email stage. The sweeper picks it up again if this fails.
func (h *ChainHandler) queueConfirmation(ctx context.Context, p ChainPayload) {
	if err := h.next.EnqueueConfirmation(ctx, p); err != nil {
		h.logger.Error("Failed to enqueue confirmation email", zap.String("orderID", p.OrderID), zap.Error(err))
	}
}

func (h *ChainHandler) generateInvoice(ctx context.Context, p ChainPayload) error {
	if _, err := h.invoices.GetByOrderID(ctx, p.OrderID); err == nil {
		h.logger.Info("Invoice already exists, skipping render", zap.String("orderID", p.OrderID))
		return nil
	} else if !errors.Is(err, invoiceRepo.ErrInvoiceNotFound) {
		return err
	}

	order, err := h.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, orderRepo.ErrOrderNotFound) {
			return fmt.Errorf("order %s: %v: %w", p.OrderID, err, asynq.SkipRetry)
		}
		return err
	}

	pdf, err := h.renderer.Render(invoice.NewDocument(order, p.RecipientEmail))
	if err != nil {
		return err
	}
	name := models.InvoiceBlobName(order.ID)
	if err := h.blobs.Put(ctx, name, pdf, models.InvoiceContentType); err != nil {
		return fmt.Errorf("failed to store invoice: %w", err)
	}
	created, err := h.invoices.CreateIfAbsent(ctx, &models.Invoice{
		OrderID:     order.ID,
		BlobName:    name,
		Size:        int64(len(pdf)),
		ContentType: models.InvoiceContentType,
		CreatedAt:   h.now(),
	})
	if err != nil {
		return err
	}
	if !created {
		h.logger.Info("Invoice recorded concurrently", zap.String("orderID", order.ID))
	}
	return nil
}

// HandleSendConfirmation mails the stored invoice to the customer.
func (h *ChainHandler) HandleSendConfirmation(ctx context.Context, task *asynq.Task) error {
	p, err := parsePayload(task)
	if err != nil {
		return err
	}
	chain, err := h.chains.Get(ctx, p.OrderID)
	if err != nil {
		return h.chainError(p.OrderID, err)
	}
	if status := chain.Stages.Invoice.Status; status != models.StageSucceeded {
		// A stored invoice is enough: the stage can read running while a
		// duplicate invoice task is in flight.
		if _, err := h.invoices.GetByOrderID(ctx, p.OrderID); err != nil {
			if errors.Is(err, invoiceRepo.ErrInvoiceNotFound) {
				return fmt.Errorf("invoice stage of order %s is %s: %w", p.OrderID, status, asynq.SkipRetry)
			}
			return err
		}
	}
	if chain.Stages.Email.Status == models.StageSucceeded {
		h.logger.Info("Confirmation already sent", zap.String("orderID", p.OrderID))
		return nil
	}

	if err := h.chains.StartAttempt(ctx, p.OrderID, models.StageEmail); err != nil {
		return h.chainError(p.OrderID, err)
	}
	if err := h.sendConfirmation(ctx, p); err != nil {
		h.recordRetryable(ctx, p.OrderID, models.StageEmail, err)
		return err
	}
	if err := h.chains.Finish(ctx, p.OrderID, models.StageEmail, models.StageSucceeded, ""); err != nil {
		return h.chainError(p.OrderID, err)
	}
	h.logger.Info("Confirmation email sent", zap.String("orderID", p.OrderID))
	return nil
}

func (h *ChainHandler) sendConfirmation(ctx context.Context, p ChainPayload) error {
	inv, err := h.invoices.GetByOrderID(ctx, p.OrderID)
	if err != nil {
		return err
	}
	pdf, err := h.blobs.Get(ctx, inv.BlobName)
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}
	return h.mailer.Send(ctx, ConfirmationMessage(p, pdf))
}

// ConfirmationMessage is the mail sent once an order's invoice is ready.
func ConfirmationMessage(p ChainPayload, pdf []byte) mail.Message {
	return mail.Message{
		To:      []string{p.RecipientEmail},
		Subject: fmt.Sprintf("Order Confirmation - Order #%s", p.OrderID),
		Body:    fmt.Sprintf("Thank you for your order! Your order #%s has been placed successfully. See attached invoice.", p.OrderID),
		Attachments: []mail.Attachment{{
			Filename:    fmt.Sprintf("invoice_%s.pdf", p.OrderID),
			ContentType: models.InvoiceContentType,
			Data:        pdf,
		}},
	}
}

// recordRetryable notes the error and puts the stage back to pending until
// asynq retries it or HandleError declares it failed.
func (h *ChainHandler) recordRetryable(ctx context.Context, orderID string, stage models.Stage, cause error) {
	if err := h.chains.Finish(context.WithoutCancel(ctx), orderID, stage, models.StagePending, cause.Error()); err != nil {
		h.logger.Warn("Failed to record stage error", zap.String("orderID", orderID), zap.String("stage", string(stage)), zap.Error(err))
	}
}

func (h *ChainHandler) chainError(orderID string, err error) error {
	if errors.Is(err, pipelineRepo.ErrChainNotFound) {
		return fmt.Errorf("order %s: %v: %w", orderID, err, asynq.SkipRetry)
	}
	return err
}

func (h *ChainHandler) asynqRetryInfo(ctx context.Context) (int, int) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		maxRetry = h.maxRetry
	}
	return retried, maxRetry
}

// isFinalAttempt mirrors asynq's archive rule: retries are exhausted or the
// handler asked not to retry.
func isFinalAttempt(retried, maxRetry int, err error) bool {
	return retried >= maxRetry || errors.Is(err, asynq.SkipRetry)
}

// HandleError implements asynq.ErrorHandler. After the last attempt of a
// stage it marks the stage failed; the email stage is then never queued.
func (h *ChainHandler) HandleError(ctx context.Context, task *asynq.Task, err error) {
	retried, maxRetry := h.retryInfo(ctx)
	fields := []zap.Field{
		zap.String("type", task.Type()),
		zap.Int("retried", retried),
		zap.Int("maxRetry", maxRetry),
		zap.Error(err),
	}
	p, perr := parsePayload(task)
	if perr == nil {
		fields = append(fields, zap.String("orderID", p.OrderID))
	}

	if !isFinalAttempt(retried, maxRetry, err) {
		h.logger.Warn("Order task failed, will retry", fields...)
		return
	}
	h.logger.Error("Order task failed permanently", fields...)

	stage, ok := StageOf(task.Type())
	if !ok || perr != nil {
		return
	}
	if ferr := h.chains.Finish(context.WithoutCancel(ctx), p.OrderID, stage, models.StageFailed, err.Error()); ferr != nil {
		h.logger.Error("Failed to mark stage failed", zap.String("orderID", p.OrderID), zap.String("stage", string(stage)), zap.Error(ferr))
	}
}
