package domain

import "time"

// TokenRecord is the persisted per-mint verification record.
// Corresponds to verified_tokens table in PostgreSQL.
type TokenRecord struct {
	MintAddress            string             `json:"mintAddress" bson:"_id"`
	Network                string             `json:"network" bson:"network"`
	ProgramType            ProgramType        `json:"programType" bson:"program_type"`
	Name                   *string            `json:"name" bson:"name"`
	Symbol                 *string            `json:"symbol" bson:"symbol"`
	URI                    *string            `json:"uri" bson:"uri"`
	Decimals               int                `json:"decimals" bson:"decimals"`
	Supply                 string             `json:"supply" bson:"supply"` // raw units, decimal string
	MintAuthorityRevoked   bool               `json:"mintAuthorityRevoked" bson:"mint_authority_revoked"`
	FreezeAuthorityRevoked bool               `json:"freezeAuthorityRevoked" bson:"freeze_authority_revoked"`
	RiskScore              int                `json:"riskScore" bson:"risk_score"`
	Warnings               []string           `json:"warnings" bson:"warnings"`
	Status                 VerificationStatus `json:"status" bson:"status"`
	VerifiedAt             time.Time          `json:"verifiedAt" bson:"verified_at"`
	UpdatedAt              time.Time          `json:"updatedAt" bson:"updated_at"`
}
