package booking

import (
	"context"
	"fmt"
)

// LedgerBalance is the authoritative balance derived from payments and bookings.
type LedgerBalance struct {
	Credits        Amount
	UnsettledDebt  Amount
	SettledCharges Amount
	Balance        Amount
}

// BalanceSync reports a cache overwrite.
type BalanceSync struct {
	Previous Amount
	Computed Amount
	Drift    Amount
	Drifted  bool
}

// BalanceValidation compares the cached balance to the ledger.
type BalanceValidation struct {
	IsValid    bool
	Cached     Amount
	Computed   Amount
	Difference Amount
	Synced     bool
}

// CalculateBalance derives the balance from paid payments and non-cancelled bookings.
func (service *Service) CalculateBalance(ctx context.Context, tenantID TenantID, studentID StudentID) (LedgerBalance, error) {
	return calculateLedger(ctx, service.store, tenantID, studentID)
}

// SyncBalance overwrites the cached balance with the ledger balance.
// Drift beyond the configured epsilon is logged, never returned as an error.
func (service *Service) SyncBalance(ctx context.Context, tenantID TenantID, studentID StudentID) (BalanceSync, error) {
	var result BalanceSync
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if _, err := txStore.EnsureMembership(ctx, tenantID, studentID); err != nil {
			return err
		}
		ledger, err := calculateLedger(ctx, txStore, tenantID, studentID)
		if err != nil {
			return err
		}
		previous, err := service.balanceCache(txStore).OverwriteBalance(ctx, tenantID, studentID, ledger.Balance)
		if err != nil {
			return WrapError("cache", "balance", "overwrite_failed", err)
		}
		drift := previous - ledger.Balance
		result = BalanceSync{
			Previous: previous,
			Computed: ledger.Balance,
			Drift:    drift,
			Drifted:  drift.Abs() > service.driftEpsilon,
		}
		return nil
	})
	entry := OperationLog{
		Operation: operationSyncBalance,
		TenantID:  tenantID,
		StudentID: studentID,
		Amount:    result.Computed,
		Error:     operationError,
	}
	if operationError == nil && result.Drifted {
		entry.Status = OperationStatusDrift
		entry.Detail = fmt.Sprintf("cached %d, computed %d", result.Previous, result.Computed)
	}
	service.logOperation(ctx, entry)
	if operationError != nil {
		return BalanceSync{}, operationError
	}
	return result, nil
}

// ValidateBalance compares cache and ledger, syncing only when autoSync is set and they disagree.
func (service *Service) ValidateBalance(ctx context.Context, tenantID TenantID, studentID StudentID, autoSync bool) (BalanceValidation, error) {
	cached, err := service.balanceCache(service.store).CachedBalance(ctx, tenantID, studentID)
	if err != nil {
		return BalanceValidation{}, err
	}
	ledger, err := calculateLedger(ctx, service.store, tenantID, studentID)
	if err != nil {
		return BalanceValidation{}, err
	}
	difference := cached - ledger.Balance
	validation := BalanceValidation{
		IsValid:    difference.Abs() <= service.driftEpsilon,
		Cached:     cached,
		Computed:   ledger.Balance,
		Difference: difference,
	}
	if validation.IsValid {
		return validation, nil
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationBalanceCheck,
		TenantID:  tenantID,
		StudentID: studentID,
		Amount:    difference,
		Status:    OperationStatusDrift,
		Detail:    fmt.Sprintf("cached %d, computed %d", cached, ledger.Balance),
	})
	if !autoSync {
		return validation, nil
	}
	if _, err := service.SyncBalance(ctx, tenantID, studentID); err != nil {
		return BalanceValidation{}, err
	}
	validation.Synced = true
	return validation, nil
}

// GetBalance returns the cached balance, or the freshly synced ledger balance when syncCache is set.
func (service *Service) GetBalance(ctx context.Context, tenantID TenantID, studentID StudentID, syncCache bool) (Amount, error) {
	if syncCache {
		result, err := service.SyncBalance(ctx, tenantID, studentID)
		if err != nil {
			return 0, err
		}
		return result.Computed, nil
	}
	return service.balanceCache(service.store).CachedBalance(ctx, tenantID, studentID)
}

func calculateLedger(ctx context.Context, store Store, tenantID TenantID, studentID StudentID) (LedgerBalance, error) {
	payments, err := store.ListPayments(ctx, tenantID, studentID, PaymentStatusPaid)
	if err != nil {
		return LedgerBalance{}, err
	}
	bookings, err := store.ListStudentBookings(ctx, tenantID, studentID)
	if err != nil {
		return LedgerBalance{}, err
	}
	return computeLedger(payments, bookings), nil
}

func computeLedger(payments []Payment, bookings []Booking) LedgerBalance {
	chargeable := make(map[BookingID]Booking, len(bookings))
	for _, booking := range bookings {
		if booking.Status != BookingStatusCancelled {
			chargeable[booking.ID] = booking
		}
	}
	var ledger LedgerBalance
	settled := make(map[BookingID]bool)
	for _, payment := range payments {
		if payment.Status != PaymentStatusPaid {
			continue
		}
		if payment.IsTopUp() {
			ledger.Credits += payment.Amount
			continue
		}
		if _, ok := chargeable[*payment.BookingID]; !ok {
			continue
		}
		ledger.SettledCharges += payment.Amount
		settled[*payment.BookingID] = true
	}
	for bookingID, booking := range chargeable {
		if !settled[bookingID] {
			ledger.UnsettledDebt += booking.Price
		}
	}
	ledger.Balance = ledger.Credits - ledger.UnsettledDebt - ledger.SettledCharges
	return ledger
}

// bookingCharge is what a non-cancelled booking currently subtracts from the balance.
func bookingCharge(booking Booking, payments []Payment) Amount {
	var linked Amount
	settled := false
	for _, payment := range payments {
		if payment.Status != PaymentStatusPaid || payment.BookingID == nil || *payment.BookingID != booking.ID {
			continue
		}
		linked += payment.Amount
		settled = true
	}
	if settled {
		return linked
	}
	return booking.Price
}
