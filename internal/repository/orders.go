// Package repository persists confirmatory orders and referral confirmations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"genomic-report-server/internal/models"
)

var ErrNoOrders = errors.New("no orders to create")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrders inserts all orders in one transaction. Orders whose
// (report, action) pair is already stored are skipped, so a retried request
// never duplicates a lab order.
func (r *OrderRepository) CreateOrders(ctx context.Context, orders []models.ConfirmatoryOrder) error {
	if len(orders) == 0 {
		return ErrNoOrders
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&orders).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create orders: %w", err)
	}
	return nil
}

// ListOrders returns the orders for a report, oldest first.
func (r *OrderRepository) ListOrders(ctx context.Context, reportID string) ([]models.ConfirmatoryOrder, error) {
	var orders []models.ConfirmatoryOrder
	if err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) RecordReferralConfirmation(ctx context.Context, c *models.ReferralConfirmation) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to record referral confirmation: %w", err)
	}
	return nil
}
