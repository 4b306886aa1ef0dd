package supabase

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"songcraft-backend/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

const orderColumns = `id, user_id, customization_id, status, amount, order_type, payment_method, tweak_count, occasion_date, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID, &order.UserID, &order.CustomizationID, &order.Status,
		&order.Amount, &order.OrderType, &order.PaymentMethod, &order.TweakCount,
		&order.OccasionDate, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DatabaseClient) CreateOrder(order *models.Order) (*models.Order, error) {
	row := d.db.QueryRow(`
		INSERT INTO orders (id, user_id, customization_id, status, amount, order_type, payment_method, occasion_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderColumns+`
	`, order.ID, order.UserID, order.CustomizationID, order.Status,
		order.Amount, order.OrderType, order.PaymentMethod, order.OccasionDate)

	created, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return created, nil
}

func (d *DatabaseClient) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	row := d.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (d *DatabaseClient) GetOrderForUser(orderID, userID uuid.UUID) (*models.Order, error) {
	row := d.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (d *DatabaseClient) UpdateOrderStatus(orderID uuid.UUID, status string) error {
	_, err := d.db.Exec(`
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, orderID)
	return err
}

// MarkOrderPaid advances pending -> paid conditionally, so redundant webhook
// deliveries are no-ops. Returns whether this call won the transition.
func (d *DatabaseClient) MarkOrderPaid(orderID uuid.UUID) (bool, error) {
	result, err := d.db.Exec(`
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.OrderStatusPaid, orderID, models.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

const variantColumns = `id, order_id, user_id, variant_number, storage_path, generation_status, share_token, selected, completed_at, created_at, updated_at`

func scanVariant(row interface{ Scan(...interface{}) error }) (*models.SongVariant, error) {
	var v models.SongVariant
	err := row.Scan(
		&v.ID, &v.OrderID, &v.UserID, &v.VariantNumber, &v.StoragePath,
		&v.GenerationStatus, &v.ShareToken, &v.Selected, &v.CompletedAt,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *DatabaseClient) VariantsByOrder(orderID uuid.UUID) ([]models.SongVariant, error) {
	rows, err := d.db.Query(`
		SELECT `+variantColumns+`
		FROM song_variants
		WHERE order_id = $1
		ORDER BY variant_number ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var variants []models.SongVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, *v)
	}
	return variants, rows.Err()
}

// EnsureVariantBatch inserts variant rows 1..count for the order with
// pending status. The unique (order_id, variant_number) constraint makes it
// idempotent: rows a previous partial run or the intake path already
// created are kept as they are, and the full set is read back.
func (d *DatabaseClient) EnsureVariantBatch(order *models.Order, count int) ([]models.SongVariant, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for n := 1; n <= count; n++ {
		storagePath := fmt.Sprintf("%s/variant-%d.mp3", order.ID.String(), n)
		_, err := tx.Exec(`
			INSERT INTO song_variants (id, order_id, user_id, variant_number, storage_path, generation_status, share_token)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (order_id, variant_number) DO NOTHING
		`, uuid.New(), order.ID, order.UserID, n, storagePath, models.VariantStatusPending, uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("failed to insert variant %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit variant batch: %w", err)
	}

	return d.VariantsByOrder(order.ID)
}

// ClaimVariant is the single-attempt claim: a conditional write to
// generating, where zero rows affected means another worker already holds
// the variant. With reclaim set (workflow retries), any non-complete variant
// may be taken back, accepting that a retry landing after partial progress
// can re-render a variant.
func (d *DatabaseClient) ClaimVariant(variantID uuid.UUID, reclaim bool) (bool, error) {
	var result sql.Result
	var err error
	if reclaim {
		result, err = d.db.Exec(`
			UPDATE song_variants
			SET generation_status = $1, updated_at = NOW()
			WHERE id = $2 AND generation_status <> $3
		`, models.VariantStatusGenerating, variantID, models.VariantStatusComplete)
	} else {
		result, err = d.db.Exec(`
			UPDATE song_variants
			SET generation_status = $1, updated_at = NOW()
			WHERE id = $2 AND generation_status = $3
		`, models.VariantStatusGenerating, variantID, models.VariantStatusPending)
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim variant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (d *DatabaseClient) MarkVariantComplete(variantID uuid.UUID) error {
	_, err := d.db.Exec(`
		UPDATE song_variants
		SET generation_status = $1, completed_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`, models.VariantStatusComplete, variantID)
	return err
}

func (d *DatabaseClient) MarkVariantFailed(variantID uuid.UUID) error {
	_, err := d.db.Exec(`
		UPDATE song_variants
		SET generation_status = $1, updated_at = NOW()
		WHERE id = $2
	`, models.VariantStatusFailed, variantID)
	return err
}

// AppendVariant adds one pending variant with the next variant number,
// increments the order's tweak count, and flips a completed order back to
// generating so the aggregation rule re-runs once the new variant resolves.
func (d *DatabaseClient) AppendVariant(orderID uuid.UUID) (*models.SongVariant, *models.Order, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock order: %w", err)
	}

	var nextNumber int
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(variant_number), 0) + 1
		FROM song_variants
		WHERE order_id = $1
	`, orderID).Scan(&nextNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute next variant number: %w", err)
	}

	storagePath := fmt.Sprintf("%s/variant-%d.mp3", orderID.String(), nextNumber)
	variantRow := tx.QueryRow(`
		INSERT INTO song_variants (id, order_id, user_id, variant_number, storage_path, generation_status, share_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+variantColumns+`
	`, uuid.New(), orderID, order.UserID, nextNumber, storagePath, models.VariantStatusPending, uuid.NewString())
	variant, err := scanVariant(variantRow)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert variant: %w", err)
	}

	newStatus := order.Status
	if order.Status == models.OrderStatusCompleted {
		newStatus = models.OrderStatusGenerating
	}
	updatedRow := tx.QueryRow(`
		UPDATE orders
		SET tweak_count = tweak_count + 1, status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+orderColumns+`
	`, newStatus, orderID)
	updated, err := scanOrder(updatedRow)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit tweak: %w", err)
	}
	return variant, updated, nil
}

// SelectVariant marks one complete variant as the customer's pick and clears
// any previous pick in the same transaction, keeping at most one selected
// variant per order.
func (d *DatabaseClient) SelectVariant(orderID, variantID, userID uuid.UUID) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE song_variants
		SET selected = FALSE, updated_at = NOW()
		WHERE order_id = $1 AND selected = TRUE
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE song_variants
		SET selected = TRUE, updated_at = NOW()
		WHERE id = $1 AND order_id = $2 AND user_id = $3 AND generation_status = $4
	`, variantID, orderID, userID, models.VariantStatusComplete)
	if err != nil {
		return fmt.Errorf("failed to select variant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

func (d *DatabaseClient) GetVariantByShareToken(token string) (*models.SongVariant, error) {
	row := d.db.QueryRow(`SELECT `+variantColumns+` FROM song_variants WHERE share_token = $1`, token)
	variant, err := scanVariant(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant by share token: %w", err)
	}
	return variant, nil
}

// RequeueStaleVariants moves variants stuck in generating longer than
// olderThan back to pending. Run by the reconciler; recovers variants
// orphaned by a crashed or killed worker.
func (d *DatabaseClient) RequeueStaleVariants(olderThan time.Duration) (int64, error) {
	result, err := d.db.Exec(`
		UPDATE song_variants
		SET generation_status = $1, updated_at = NOW()
		WHERE generation_status = $2 AND updated_at < NOW() - $3::interval
	`, models.VariantStatusPending, models.VariantStatusGenerating,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale variants: %w", err)
	}
	return result.RowsAffected()
}

const bundleColumns = `id, user_id, order_id, bundle_tier, quantity_purchased, quantity_remaining, purchased_at, expires_at`

// OldestBundleWithCredits returns the user's FIFO redemption candidate, or
// sql.ErrNoRows when the user has no credits left.
func (d *DatabaseClient) OldestBundleWithCredits(userID uuid.UUID) (*models.Bundle, error) {
	var b models.Bundle
	err := d.db.QueryRow(`
		SELECT `+bundleColumns+`
		FROM bundles
		WHERE user_id = $1
		  AND quantity_remaining > 0
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY purchased_at ASC
		LIMIT 1
	`, userID).Scan(
		&b.ID, &b.UserID, &b.OrderID, &b.BundleTier,
		&b.QuantityPurchased, &b.QuantityRemaining, &b.PurchasedAt, &b.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DecrementBundleCredits spends one credit with optimistic concurrency: the
// decrement only applies if quantity_remaining still equals the value the
// caller just read. Zero rows affected means a concurrent redemption won.
func (d *DatabaseClient) DecrementBundleCredits(bundleID uuid.UUID, expected int) (bool, error) {
	result, err := d.db.Exec(`
		UPDATE bundles
		SET quantity_remaining = quantity_remaining - 1
		WHERE id = $1 AND quantity_remaining = $2
	`, bundleID, expected)
	if err != nil {
		return false, fmt.Errorf("failed to decrement bundle credits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (d *DatabaseClient) CreditBalance(userID uuid.UUID) (int, error) {
	var balance int
	err := d.db.QueryRow(`
		SELECT COALESCE(SUM(quantity_remaining), 0)
		FROM bundles
		WHERE user_id = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
	`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to get credit balance: %w", err)
	}
	return balance, nil
}

// CreateBundle records a purchased credit block. Idempotent per purchase
// order so replayed checkout webhooks do not grant credits twice.
func (d *DatabaseClient) CreateBundle(bundle *models.Bundle) error {
	_, err := d.db.Exec(`
		INSERT INTO bundles (id, user_id, order_id, bundle_tier, quantity_purchased, quantity_remaining, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO NOTHING
	`, bundle.ID, bundle.UserID, bundle.OrderID, bundle.BundleTier,
		bundle.QuantityPurchased, bundle.QuantityRemaining, bundle.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	return nil
}

func (d *DatabaseClient) CreateFailedJob(job *models.FailedJob) error {
	id := job.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := d.db.Exec(`
		INSERT INTO failed_jobs (id, job_type, event_data, error_message, error_stack, retry_count, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, job.JobType, job.EventData, job.ErrorMessage, job.ErrorStack, job.RetryCount, job.FailedAt)
	if err != nil {
		return fmt.Errorf("failed to create failed job: %w", err)
	}
	return nil
}

// ResolveFailedJob records operator triage on a dead letter. Returns false
// when the job does not exist or was already resolved.
func (d *DatabaseClient) ResolveFailedJob(jobID uuid.UUID, notes string) (bool, error) {
	result, err := d.db.Exec(`
		UPDATE failed_jobs
		SET resolved_at = NOW(), notes = $1
		WHERE id = $2 AND resolved_at IS NULL
	`, notes, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListUnresolvedFailedJobs returns dead letters awaiting operator triage,
// oldest first.
func (d *DatabaseClient) ListUnresolvedFailedJobs(limit int) ([]models.FailedJob, error) {
	rows, err := d.db.Query(`
		SELECT id, job_type, event_data, error_message, error_stack, retry_count, failed_at, resolved_at, notes
		FROM failed_jobs
		WHERE resolved_at IS NULL
		ORDER BY failed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.FailedJob
	for rows.Next() {
		var j models.FailedJob
		if err := rows.Scan(
			&j.ID, &j.JobType, &j.EventData, &j.ErrorMessage, &j.ErrorStack,
			&j.RetryCount, &j.FailedAt, &j.ResolvedAt, &j.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan failed job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (d *DatabaseClient) GetCustomization(customizationID uuid.UUID) (*models.Customization, error) {
	var c models.Customization
	err := d.db.QueryRow(`
		SELECT id, user_id, recipient_name, occasion, genre, mood, prompt_text, created_at
		FROM customizations
		WHERE id = $1
	`, customizationID).Scan(
		&c.ID, &c.UserID, &c.RecipientName, &c.Occasion,
		&c.Genre, &c.Mood, &c.PromptText, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get customization: %w", err)
	}
	return &c, nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
