package domain

type UserSummary struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type UserProfile struct {
	UserID      string `json:"userId"`
	ZaloName    string `json:"zaloName"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Cover       string `json:"cover,omitempty"`
	Gender      int    `json:"gender"`
	DOB         int64  `json:"dob,omitempty"`
}

type Friend struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	ZaloName    string `json:"zaloName"`
	Avatar      string `json:"avatar,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Gender      int    `json:"gender"`
	Status      string `json:"status,omitempty"`
}

type RecommendationType int

const (
	RecommendationSuggestion      RecommendationType = 1
	RecommendationIncomingRequest RecommendationType = 2
)

type Recommendation struct {
	UserID      string             `json:"userId"`
	DisplayName string             `json:"displayName"`
	ZaloName    string             `json:"zaloName"`
	Avatar      string             `json:"avatar,omitempty"`
	Message     string             `json:"message"`
	Type        RecommendationType `json:"-"`
}
