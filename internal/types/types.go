package types

type HealthResponse struct {
	Status    string `json:"status"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type FSPathRequest struct {
	Path string `form:"path"`
}

// FSWriteRequest is the body of POST /api/fs/write. Content is a pointer so
// an empty file can be told apart from a missing field.
type FSWriteRequest struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

type FSWriteResponse struct {
	Success bool `json:"success"`
}

type FSExistsResponse struct {
	Exists bool `json:"exists"`
}

// User is one row of the dummy dataset.
type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Country     string `json:"country"`
	Salary      int    `json:"salary"`
	Status      string `json:"status"`
	HireDate    string `json:"hireDate"`
	Performance int    `json:"performance"`
}

type ListUsersResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Data    []User `json:"data"`
}

type PaginatedUsersRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type PaginatedUsersResponse struct {
	Success    bool   `json:"success"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
	Data       []User `json:"data"`
}
