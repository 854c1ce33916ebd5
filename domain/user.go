package domain

type Consumer struct {
	ID        int64  `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"password,omitempty" db:"password"`
	CreatedAt string `json:"created_at,omitempty" db:"created_at"`
}
