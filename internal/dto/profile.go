package dto

// UpdateProfileRequest patches the caller's profile. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Phone    *string  `json:"phone" validate:"omitempty,max=32"`
	Subjects []string `json:"subjects" validate:"omitempty,max=20,dive,required,max=60"`
}
