package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/notify"
)

type SpecialOrderInput struct {
	SessionID         *string `json:"sessionId"`
	CustomerEmail     string  `json:"customerEmail" validate:"required,email,max=255"`
	CustomerName      *string `json:"customerName" validate:"omitempty,max=255"`
	CustomerPhone     *string `json:"customerPhone" validate:"omitempty,max=64"`
	RequestDetails    string  `json:"requestDetails" validate:"required,max=5000"`
	RequestedQuantity *int    `json:"requestedQuantity" validate:"omitempty,gt=0,lte=10000"`
	RequestedStrain   *string `json:"requestedStrain" validate:"omitempty,max=255"`
	RequestedDate     *string `json:"requestedDate" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return common.Invalid("%s failed %q validation", lowerFirst(fe.Field()), fe.Tag())
		}
		return common.Invalid("%s", err.Error())
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// SubmitSpecialOrder stores a pending order. A linked session gets a system
// message and the admin inbox is notified.
func (s *Service) SubmitSpecialOrder(ctx context.Context, in SpecialOrderInput) (*SpecialOrder, error) {
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.RequestDetails = strings.TrimSpace(in.RequestDetails)
	if in.SessionID != nil && strings.TrimSpace(*in.SessionID) == "" {
		in.SessionID = nil
	}
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	if in.SessionID != nil {
		if _, err := s.repo.GetSession(ctx, *in.SessionID); err != nil {
			return nil, err
		}
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	order := &SpecialOrder{
		ID:                id,
		ChatSessionID:     in.SessionID,
		CustomerEmail:     in.CustomerEmail,
		CustomerName:      in.CustomerName,
		CustomerPhone:     in.CustomerPhone,
		RequestDetails:    in.RequestDetails,
		RequestedQuantity: in.RequestedQuantity,
		RequestedStrain:   in.RequestedStrain,
		RequestedDate:     in.RequestedDate,
		Status:            OrderPending,
	}
	if err := s.repo.CreateSpecialOrder(ctx, order); err != nil {
		return nil, err
	}

	if in.SessionID != nil {
		if _, err := s.AppendMessage(ctx, AppendInput{
			SessionID:   *in.SessionID,
			Content:     fmt.Sprintf("Special order %s submitted. Our team will contact you at %s.", order.ID, order.CustomerEmail),
			Sender:      SenderAdmin,
			MessageType: MessageSystem,
			Metadata:    map[string]any{"specialOrderId": order.ID},
		}); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to log special order in session")
		}
	}

	s.notifyAdmin(ctx, notify.Notification{
		Kind:   notify.KindSpecialOrder,
		Fields: orderFields(order),
	})
	return order, nil
}

func orderFields(o *SpecialOrder) map[string]string {
	f := map[string]string{
		"orderId":        o.ID,
		"customerEmail":  o.CustomerEmail,
		"requestDetails": o.RequestDetails,
	}
	put := func(k string, v *string) {
		if v != nil {
			f[k] = *v
		}
	}
	put("sessionId", o.ChatSessionID)
	put("customerName", o.CustomerName)
	put("customerPhone", o.CustomerPhone)
	put("requestedStrain", o.RequestedStrain)
	put("requestedDate", o.RequestedDate)
	if o.RequestedQuantity != nil {
		f["requestedQuantity"] = strconv.Itoa(*o.RequestedQuantity)
	}
	return f
}

func (s *Service) ListSpecialOrders(ctx context.Context, status OrderStatus) ([]SpecialOrder, error) {
	if status != "" && !status.Valid() {
		return nil, common.Invalid("invalid status %q", status)
	}
	return s.repo.ListSpecialOrders(ctx, status)
}

func (s *Service) GetSpecialOrder(ctx context.Context, id string) (*SpecialOrder, error) {
	return s.repo.GetSpecialOrder(ctx, id)
}

type SpecialOrderUpdate struct {
	Status     *OrderStatus     `json:"status"`
	AdminNotes *string          `json:"adminNotes"`
	TotalPrice *decimal.Decimal `json:"totalPrice"`
}

// UpdateSpecialOrder applies an admin decision. Only provided fields change.
func (s *Service) UpdateSpecialOrder(ctx context.Context, id, adminID string, upd SpecialOrderUpdate) (*SpecialOrder, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, common.Invalid("status must be one of pending, confirmed, rejected, completed")
	}
	if upd.TotalPrice != nil && upd.TotalPrice.IsNegative() {
		return nil, common.Invalid("totalPrice must not be negative")
	}

	order, err := s.repo.GetSpecialOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil {
		order.Status = *upd.Status
	}
	if upd.AdminNotes != nil {
		order.AdminNotes = upd.AdminNotes
	}
	if upd.TotalPrice != nil {
		order.TotalPrice = decimal.NewNullDecimal(upd.TotalPrice.Round(2))
	}
	if adminID != "" {
		order.AdminID = &adminID
	}
	if err := s.repo.SaveSpecialOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
