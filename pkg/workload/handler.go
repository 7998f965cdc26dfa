package workload

import (
	"emperror.dev/errors"
)

// Request is an inbound call to the simulated service
type Request struct {
	UserID  string            `json:"user_id"`
	Token   string            `json:"token"`
	Payload string            `json:"payload"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// ErrorBody is the failure half of a response
type ErrorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
}

// Response is what the handler returns for a request
type Response struct {
	Status string     `json:"status"`
	User   *User      `json:"user,omitempty"`
	Err    *ErrorBody `json:"error,omitempty"`
}

// Handler drives the service for one request
type Handler struct {
	svc *UserService
}

// NewHandler wires a handler to a service
func NewHandler(svc *UserService) *Handler {
	return &Handler{svc: svc}
}

// Handle authenticates the request and resolves the user
func (h *Handler) Handle(req Request) Response {
	if err := h.svc.Authenticate(req); err != nil {
		return errorResponse(err)
	}
	u, err := h.svc.GetUser(req)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Status: "success", User: &u}
}

func errorResponse(err error) Response {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return Response{
			Status: "error",
			Err: &ErrorBody{
				Message:    apiErr.Message,
				StatusCode: apiErr.StatusCode,
				ErrorCode:  apiErr.ErrorCode,
			},
		}
	}
	return Response{
		Status: "error",
		Err: &ErrorBody{
			Message:    err.Error(),
			StatusCode: 500,
			ErrorCode:  "INTERNAL",
		},
	}
}
