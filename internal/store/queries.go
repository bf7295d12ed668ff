package store

// Booking queries.
const (
	bookingColumns = `id, user_id, hotel_name, location, check_in, check_out,
		guests, currency, reference_price, current_price,
		price_drop_detected, price_drop_amount, status, last_checked,
		created_at, updated_at`

	queryCreateBooking = `
		INSERT INTO bookings (
			user_id, hotel_name, location, check_in, check_out,
			guests, currency, reference_price, current_price, status
		) VALUES (
			@user_id, @hotel_name, @location, @check_in, @check_out,
			@guests, @currency, @reference_price, @reference_price, @status
		)
		RETURNING id, current_price, created_at, updated_at`

	queryGetBooking = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	queryListBookingsByUser = `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY check_in ASC`

	queryListAllBookings = `SELECT ` + bookingColumns + `
		FROM bookings
		ORDER BY check_in ASC`

	queryListActiveBookings = `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active'
		ORDER BY last_checked ASC NULLS FIRST`

	queryUpdateBookingPrice = `
		UPDATE bookings SET
			current_price       = @current_price,
			last_checked        = @last_checked,
			price_drop_detected = @price_drop_detected,
			price_drop_amount   = @price_drop_amount,
			updated_at          = now()
		WHERE id = @id`

	querySetBookingStatus = `
		UPDATE bookings SET
			status     = $2,
			updated_at = now()
		WHERE id = $1`
)

// Alert setting queries.
const (
	settingColumns = `user_id, min_drop_amount, min_drop_percent,
		email_enabled, push_enabled, sms_enabled, frequency,
		quiet_hours_start, quiet_hours_end, timezone,
		excluded_providers, included_locations, created_at, updated_at`

	queryGetAlertSetting = `SELECT ` + settingColumns + ` FROM alert_settings WHERE user_id = $1`

	queryUpsertAlertSetting = `
		INSERT INTO alert_settings (
			user_id, min_drop_amount, min_drop_percent,
			email_enabled, push_enabled, sms_enabled, frequency,
			quiet_hours_start, quiet_hours_end, timezone,
			excluded_providers, included_locations
		) VALUES (
			@user_id, @min_drop_amount, @min_drop_percent,
			@email_enabled, @push_enabled, @sms_enabled, @frequency,
			@quiet_hours_start, @quiet_hours_end, @timezone,
			@excluded_providers, @included_locations
		)
		ON CONFLICT (user_id) DO UPDATE SET
			min_drop_amount    = EXCLUDED.min_drop_amount,
			min_drop_percent   = EXCLUDED.min_drop_percent,
			email_enabled      = EXCLUDED.email_enabled,
			push_enabled       = EXCLUDED.push_enabled,
			sms_enabled        = EXCLUDED.sms_enabled,
			frequency          = EXCLUDED.frequency,
			quiet_hours_start  = EXCLUDED.quiet_hours_start,
			quiet_hours_end    = EXCLUDED.quiet_hours_end,
			timezone           = EXCLUDED.timezone,
			excluded_providers = EXCLUDED.excluded_providers,
			included_locations = EXCLUDED.included_locations,
			updated_at         = now()
		RETURNING created_at, updated_at`

	queryInsertDefaultAlertSetting = `
		INSERT INTO alert_settings (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`
)

// Alert queries.
const (
	alertColumns = `id, booking_id, user_id, hotel_name, location, provider,
		booked_price, current_price, delta_amount, delta_percent, currency,
		threshold_label, status, severity, triggered_at, actioned_at,
		notified_at, notes`

	queryCreateAlert = `
		INSERT INTO price_alerts (
			booking_id, user_id, hotel_name, location, provider,
			booked_price, current_price, delta_amount, delta_percent, currency,
			threshold_label, status, severity, triggered_at, notes
		) VALUES (
			@booking_id, @user_id, @hotel_name, @location, @provider,
			@booked_price, @current_price, @delta_amount, @delta_percent, @currency,
			@threshold_label, @status, @severity, @triggered_at, @notes
		)
		RETURNING id`

	queryGetAlert = `SELECT ` + alertColumns + ` FROM price_alerts WHERE id = $1`

	queryLatestAlertForBooking = `SELECT ` + alertColumns + `
		FROM price_alerts
		WHERE booking_id = $1
		ORDER BY triggered_at DESC
		LIMIT 1`

	queryUpdateAlertStatus = `
		UPDATE price_alerts SET
			status      = $2,
			actioned_at = $3
		WHERE id = $1 AND status = 'new'`

	queryListAlertsOlderThan = `SELECT ` + alertColumns + `
		FROM price_alerts
		WHERE status = ANY($1) AND triggered_at < $2
		ORDER BY triggered_at ASC`

	queryDeleteAlertsOlderThan = `
		DELETE FROM price_alerts
		WHERE status = ANY($1) AND triggered_at < $2`

	queryListUndigestedAlerts = `
		SELECT a.id, a.booking_id, a.user_id, a.hotel_name, a.location, a.provider,
			a.booked_price, a.current_price, a.delta_amount, a.delta_percent, a.currency,
			a.threshold_label, a.status, a.severity, a.triggered_at, a.actioned_at,
			a.notified_at, a.notes
		FROM price_alerts a
		JOIN alert_settings s ON s.user_id = a.user_id
		WHERE a.notified_at IS NULL
			AND a.status = 'new'
			AND s.frequency = $1
		ORDER BY a.user_id, a.triggered_at ASC`

	queryMarkAlertsNotified = `
		UPDATE price_alerts SET notified_at = $2 WHERE id = ANY($1)`
)

// Contact queries.
const (
	queryGetUserContact = `SELECT user_id, email, phone FROM user_contacts WHERE user_id = $1`
)

// Scheduler queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name)
		VALUES ($1)
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at  = now(),
			status        = $2,
			error_text    = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListLatestJobRuns = `
		SELECT DISTINCT ON (job_name)
			id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		ORDER BY job_name, started_at DESC`

	queryMarkStaleJobRunsCrashed = `
		UPDATE job_runs SET
			status       = 'crashed',
			completed_at = now()
		WHERE status = 'running' AND started_at < $1`

	queryDeleteOldJobRuns = `
		DELETE FROM job_runs WHERE started_at < now() - interval '30 days'`

	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE scheduler_locks.expires_at < now()
		RETURNING job_name`

	queryReleaseSchedulerLock = `
		DELETE FROM scheduler_locks WHERE job_name = $1 AND lock_holder = $2`
)
