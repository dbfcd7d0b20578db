package logger

// Standard structured-log field names used across the platform.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTopic     = "topic"
	FieldGroupID   = "group_id"
	FieldOffset    = "offset"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldSessionID = "session_id"
	FieldProductID = "product_id"
	FieldOrderID   = "order_id"
)
