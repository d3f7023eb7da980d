package postgres

import "time"

type escrowModel struct {
	EscrowID     string     `gorm:"column:escrow_id;primaryKey"`
	ClientID     string     `gorm:"column:client_id"`
	FreelancerID string     `gorm:"column:freelancer_id"`
	Amount       int64      `gorm:"column:amount"`
	Currency     string     `gorm:"column:currency"`
	Status       string     `gorm:"column:status"`
	LastVerdict  *string    `gorm:"column:last_verdict"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	FundedAt     *time.Time `gorm:"column:funded_at"`
	ClosedAt     *time.Time `gorm:"column:closed_at"`
}

func (escrowModel) TableName() string { return "escrows" }

type verificationModel struct {
	VerificationID  string    `gorm:"column:verification_id;primaryKey"`
	EscrowID        string    `gorm:"column:escrow_id"`
	FileName        string    `gorm:"column:file_name"`
	Category        string    `gorm:"column:category"`
	SizeBytes       int64     `gorm:"column:size_bytes"`
	ConfidenceScore float64   `gorm:"column:confidence_score"`
	Verified        bool      `gorm:"column:verified"`
	Issues          string    `gorm:"column:issues"`
	Strengths       string    `gorm:"column:strengths"`
	Feedback        string    `gorm:"column:feedback"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (verificationModel) TableName() string { return "escrow_verifications" }

type settlementModel struct {
	SettlementID string    `gorm:"column:settlement_id;primaryKey"`
	EscrowID     string    `gorm:"column:escrow_id"`
	Action       string    `gorm:"column:action"`
	Status       string    `gorm:"column:status"`
	Attempts     int       `gorm:"column:attempts"`
	LastError    *string   `gorm:"column:last_error"`
	Receipt      *string   `gorm:"column:receipt"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (settlementModel) TableName() string { return "escrow_settlements" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   *int      `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "escrow_idempotency" }

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "escrow_event_dedup" }

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	EventClass   string     `gorm:"column:event_class"`
	PartitionKey string     `gorm:"column:partition_key"`
	Envelope     string     `gorm:"column:envelope"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "escrow_outbox" }
