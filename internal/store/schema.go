package store

// Database schema definitions for the LiqPass backend

const createSKUsTable = `
CREATE TABLE IF NOT EXISTS skus (
    id VARCHAR(64) PRIMARY KEY,
    code VARCHAR(64) NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    leverage_min DECIMAL(10,2) NOT NULL,
    leverage_max DECIMAL(10,2) NOT NULL,
    principal_min DECIMAL(20,6) NOT NULL,
    principal_max DECIMAL(20,6) NOT NULL,
    payout_cap_usd DECIMAL(20,6) NOT NULL,
    fee_cap DECIMAL(10,6) NOT NULL,
    payout_floor DECIMAL(10,6) NOT NULL,
    payout_cap DECIMAL(10,6) NOT NULL,
    quote_ttl_seconds INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(code),
    CHECK (leverage_min > 0),
    CHECK (leverage_max >= leverage_min),
    CHECK (principal_max >= principal_min),
    CHECK (payout_cap >= payout_floor),
    CHECK (quote_ttl_seconds > 0)
);
`

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
    id UUID PRIMARY KEY,
    sku_id VARCHAR(64) NOT NULL REFERENCES skus(id),
    principal DECIMAL(20,6) NOT NULL,
    leverage DECIMAL(10,2) NOT NULL,
    wallet VARCHAR(64) NOT NULL,
    premium_usdc DECIMAL(20,6) NOT NULL,
    payout_usdc DECIMAL(20,6) NOT NULL,
    fee_ratio DECIMAL(10,6) NOT NULL,
    payout_ratio DECIMAL(10,6) NOT NULL,
    idempotency_key VARCHAR(128) NOT NULL,
    quote_expires_at TIMESTAMPTZ NOT NULL,
    payment_method VARCHAR(32) NOT NULL DEFAULT 'usdc',
    payment_tx VARCHAR(128),
    payment_status VARCHAR(32) NOT NULL CHECK (payment_status IN ('pending', 'paid')),
    payment_proof_id UUID,
    order_ref VARCHAR(128),
    exchange VARCHAR(32),
    pair VARCHAR(64),
    status VARCHAR(32) NOT NULL CHECK (status IN ('pending', 'paid', 'expired', 'cancelled')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(idempotency_key),
    CHECK (premium_usdc > 0),
    CHECK (payout_usdc > 0)
);
`

const createPaymentProofsTable = `
CREATE TABLE IF NOT EXISTS payment_proofs (
    id UUID PRIMARY KEY,
    order_id UUID NOT NULL REFERENCES orders(id),
    chain_id BIGINT NOT NULL,
    token VARCHAR(64) NOT NULL,
    from_addr VARCHAR(64) NOT NULL,
    to_addr VARCHAR(64) NOT NULL,
    amount_min_unit DECIMAL(40,0) NOT NULL,
    amount_usdc DECIMAL(20,6) NOT NULL,
    tx_hash VARCHAR(128) NOT NULL,
    block_number BIGINT,
    status VARCHAR(32) NOT NULL CHECK (status IN ('pending', 'confirmed', 'rejected')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    confirmed_at TIMESTAMPTZ,

    UNIQUE(tx_hash),
    CHECK (amount_min_unit > 0)
);
`

const createClaimsTable = `
CREATE TABLE IF NOT EXISTS claims (
    id UUID PRIMARY KEY,
    order_id UUID NOT NULL REFERENCES orders(id),
    user_id VARCHAR(128) NOT NULL,
    wallet_address VARCHAR(64) NOT NULL,
    claim_type VARCHAR(32) NOT NULL,
    status VARCHAR(32) NOT NULL CHECK (status IN (
        'pending', 'submitted', 'under_review', 'approved', 'rejected', 'paid', 'cancelled'
    )),
    amount_usdc DECIMAL(20,6) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    evidence_files JSONB,
    review_notes TEXT,
    reviewed_at TIMESTAMPTZ,
    payout_tx_hash VARCHAR(128),
    payout_status VARCHAR(32) CHECK (payout_status IN ('pending', 'completed')),
    payout_amount_usdc DECIMAL(20,6),
    payout_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(order_id),
    CHECK (amount_usdc > 0)
);
`

const createIndexes = `
-- Order indexes
CREATE INDEX IF NOT EXISTS idx_orders_wallet ON orders(wallet);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_status_quote_expiry ON orders(status, quote_expires_at);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

-- Payment proof indexes
CREATE INDEX IF NOT EXISTS idx_payment_proofs_order_id ON payment_proofs(order_id);
CREATE INDEX IF NOT EXISTS idx_payment_proofs_status ON payment_proofs(status);

-- Claim indexes
CREATE INDEX IF NOT EXISTS idx_claims_wallet ON claims(wallet_address);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
`
