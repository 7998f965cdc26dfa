package workload

// User is a record the simulated service can return
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserService authenticates requests and looks up users
type UserService struct {
	errs  ErrorSource
	users map[string]User
}

// NewUserService builds a service with a small fixed user table
func NewUserService(errs ErrorSource) *UserService {
	return &UserService{
		errs: errs,
		users: map[string]User{
			"user1": {Name: "John", Email: "john@example.com"},
			"user2": {Name: "Alice", Email: "alice@example.com"},
		},
	}
}

// Authenticate rejects empty or invalid tokens
func (s *UserService) Authenticate(req Request) error {
	if req.Token == "" || req.Token == "invalid" {
		details := []interface{}{"payload", req.Payload}
		for k, v := range req.Meta {
			details = append(details, k, v)
		}
		return s.errs.TokenInvalid(details...)
	}
	return nil
}

// GetUser looks up the requested user
func (s *UserService) GetUser(req Request) (User, error) {
	u, ok := s.users[req.UserID]
	if !ok {
		return User{}, s.errs.UserNotFound("user_id", req.UserID, "payload", req.Payload)
	}
	return u, nil
}
