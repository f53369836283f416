package project

// ProjectUpdate carries optional field replacements; nil means "leave unchanged".
type ProjectUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// TaskUpdate carries optional field replacements; nil means "leave unchanged".
type TaskUpdate struct {
	Name         *string  `json:"name,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Status       *string  `json:"status,omitempty"`
	CostEstimate *float64 `json:"costEstimate,omitempty"`
	MilestoneID  *string  `json:"milestoneId,omitempty"`
}
