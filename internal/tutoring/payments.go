package tutoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PaymentRequest is the input for RecordPayment and EnrollAndPay.
// Amount defaults to the class fee and Method to cash.
type PaymentRequest struct {
	StudentID string
	ClassID   string
	Month     string
	Amount    *int64
	Method    PaymentMethod
	Reference string
	PaidAt    *time.Time
}

// ClassPayments is one class entry of a student's payment view.
type ClassPayments struct {
	Class         ClassWithTeacher `json:"class"`
	Active        bool             `json:"active"`
	History       []Payment        `json:"history"`
	PaidThisMonth bool             `json:"paidThisMonth"`
}

// PaymentView summarises a student's fee status across every class they
// have been enrolled in.
type PaymentView struct {
	Student          StudentSummary     `json:"student"`
	Month            Month              `json:"month"`
	Enrolled         []ClassPayments    `json:"enrolled"`
	AvailableClasses []ClassWithTeacher `json:"availableClasses"`
}

// EnrollAndPayResult is returned by EnrollAndPay.
type EnrollAndPayResult struct {
	Payment  Payment `json:"payment"`
	Enrolled bool    `json:"enrolled"`
}

func (s *Service) buildPayment(req PaymentRequest, class Class) (Payment, error) {
	var c checker
	c.required("studentId", req.StudentID)
	c.required("classId", req.ClassID)
	month, err := ParseMonth(req.Month)
	if err != nil {
		c.add("month", "must be formatted YYYY-MM")
	}
	method := req.Method
	if method == "" {
		method = MethodCash
	}
	if !method.Valid() {
		c.add("method", "must be one of cash, card, bank, online, other")
	}
	amount := class.Fee
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount < 0 {
		c.add("amount", "must not be negative")
	}
	if err := c.err(); err != nil {
		return Payment{}, err
	}
	now := s.clock()
	paidAt := now
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}
	return Payment{
		ID:        newID(),
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Month:     month,
		Amount:    amount,
		Method:    method,
		Reference: strings.TrimSpace(req.Reference),
		PaidAt:    paidAt,
		CreatedAt: now,
	}, nil
}

// RecordPayment stores a payment for (student, class, month). A second
// payment for the same triple is a Conflict.
func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest) (Payment, error) {
	p, err := s.recordPayment(ctx, s.store, req)
	if err != nil {
		return Payment{}, s.reject("record_payment", err)
	}
	s.observer.PaymentRecorded(p.Method, p.Amount)
	return p, nil
}

func (s *Service) recordPayment(ctx context.Context, st Store, req PaymentRequest) (Payment, error) {
	if isBlank(req.StudentID) || isBlank(req.ClassID) {
		_, err := s.buildPayment(req, Class{})
		return Payment{}, err
	}
	if _, err := getStudent(ctx, st, req.StudentID); err != nil {
		return Payment{}, err
	}
	class, err := getClass(ctx, st, req.ClassID)
	if err != nil {
		return Payment{}, err
	}
	p, err := s.buildPayment(req, class)
	if err != nil {
		return Payment{}, err
	}
	if err := st.InsertPayment(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Payment{}, conflict("Payment already exists for this month")
		}
		return Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	s.log.Info("payment recorded",
		zap.String("student_id", p.StudentID),
		zap.String("class_id", p.ClassID),
		zap.String("month", string(p.Month)),
		zap.Int64("amount", p.Amount))
	return p, nil
}

// EnrollAndPay enrolls the student if not already active, then records the
// payment. Both steps commit together or not at all.
func (s *Service) EnrollAndPay(ctx context.Context, req PaymentRequest) (EnrollAndPayResult, error) {
	var res EnrollAndPayResult
	err := s.store.WithTx(ctx, func(tx Store) error {
		stu, err := getStudent(ctx, tx, req.StudentID)
		if err != nil {
			return err
		}
		if _, ok := stu.ActiveEnrollment(req.ClassID); !ok {
			if _, err := s.enroll(ctx, tx, req.StudentID, req.ClassID); err != nil {
				return err
			}
			res.Enrolled = true
		}
		res.Payment, err = s.recordPayment(ctx, tx, req)
		return err
	})
	if err != nil {
		return EnrollAndPayResult{}, s.reject("enroll_and_pay", err)
	}
	s.observer.PaymentRecorded(res.Payment.Method, res.Payment.Amount)
	return res, nil
}

// ListPayments returns payments matching f, newest month first.
func (s *Service) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	if f.Month != "" {
		if _, err := ParseMonth(string(f.Month)); err != nil {
			return nil, NewValidationError("invalid input", FieldError{Field: "month", Error: "must be formatted YYYY-MM"})
		}
	}
	res, err := s.store.ListPayments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if res == nil {
		res = []Payment{}
	}
	return res, nil
}

// StudentPaymentView returns one entry per distinct class the student has
// ever been enrolled in, in first-enrollment order, plus every class the
// student is not actively enrolled in.
func (s *Service) StudentPaymentView(ctx context.Context, studentID string) (PaymentView, error) {
	stu, err := getStudent(ctx, s.store, studentID)
	if err != nil {
		return PaymentView{}, s.reject("payment_view", err)
	}
	payments, err := s.store.ListPayments(ctx, PaymentFilter{StudentID: studentID})
	if err != nil {
		return PaymentView{}, fmt.Errorf("list payments: %w", err)
	}
	byClass := map[string][]Payment{}
	for _, p := range payments {
		byClass[p.ClassID] = append(byClass[p.ClassID], p)
	}

	month := s.currentMonth()
	view := PaymentView{
		Student:          summarize(stu),
		Month:            month,
		Enrolled:         []ClassPayments{},
		AvailableClasses: []ClassWithTeacher{},
	}
	entry := map[string]int{}
	for _, e := range stu.Enrollments {
		if i, ok := entry[e.ClassID]; ok {
			view.Enrolled[i].Active = view.Enrolled[i].Active || e.Active
			continue
		}
		cw, err := s.classWithTeacher(ctx, e.ClassID)
		if err != nil {
			return PaymentView{}, err
		}
		if cw == nil {
			continue
		}
		history := byClass[e.ClassID]
		if history == nil {
			history = []Payment{}
		}
		paid := false
		for _, p := range history {
			if p.Month == month {
				paid = true
				break
			}
		}
		entry[e.ClassID] = len(view.Enrolled)
		view.Enrolled = append(view.Enrolled, ClassPayments{
			Class:         *cw,
			Active:        e.Active,
			History:       history,
			PaidThisMonth: paid,
		})
	}

	all, err := s.store.ListClasses(ctx, ClassFilter{})
	if err != nil {
		return PaymentView{}, fmt.Errorf("list classes: %w", err)
	}
	var available []Class
	for _, c := range all {
		if _, ok := stu.ActiveEnrollment(c.ID); !ok {
			available = append(available, c)
		}
	}
	view.AvailableClasses = s.populateAll(ctx, available)
	return view, nil
}
