// File: types.go
package main

// VerifyRequest is the part of a verify body every kind shares. The rest of
// the body is the kind's answer, e.g. {"challenge_id": "...", "x": 132}.
type VerifyRequest struct {
	ChallengeID string `json:"challenge_id"`
}

// VerifyResponse is returned by /api/challenge/{kind}/verify. Token is set
// only on success.
type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// TokenRequest is the body of /api/token/verify
type TokenRequest struct {
	Token string `json:"token"`
}

// TokenResponse is returned by /api/token/verify
type TokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// AuditStatsResponse is returned by /api/audit/stats
type AuditStatsResponse struct {
	Kinds map[string]map[string]int `json:"kinds"` // kind -> result -> count
	Total int                       `json:"total"`
}

// CacheStatsResponse is returned by /api/cache/stats
type CacheStatsResponse struct {
	CacheDir   string         `json:"cache_dir"`
	Categories map[string]int `json:"categories"` // 每个分类的图片数量
	Total      int            `json:"total"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}
