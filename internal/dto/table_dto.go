package dto

type CreateTableRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=50"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1,max=50"`
}

type UpdateTableRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=50"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=1,max=50"`
	Active   *bool   `json:"active"`
}

type TableResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Active   bool   `json:"active"`
	// Occupied reports whether the table has an open bill.
	Occupied bool `json:"occupied"`
}
