package response

// Response is the JSON envelope returned by every endpoint
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorData carries a stable error code and a human readable message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries the result count for list responses
type Meta struct {
	Count int `json:"count"`
}

// Success wraps data in a successful envelope
func Success(data interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// List wraps a result set together with its count
func List(data interface{}, count int) *Response {
	return &Response{Success: true, Data: data, Meta: &Meta{Count: count}}
}

// Error builds a failed envelope
func Error(code, message string) *Response {
	return &Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	}
}

// ErrorWithDetails builds a failed envelope with extra details
func ErrorWithDetails(code, message, details string) *Response {
	return &Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message, Details: details},
	}
}

func NotFound(message string) *Response {
	return Error("NOT_FOUND", message)
}

func Unauthorized(message string) *Response {
	return Error("AUTH_ERROR", message)
}

func Forbidden(message string) *Response {
	return Error("FORBIDDEN", message)
}

func InternalError(message string) *Response {
	return Error("INTERNAL_ERROR", message)
}
