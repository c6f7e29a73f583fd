package format

// Shape tags the recognized structural patterns of upstream API responses.
// Classification is tried in this fixed priority order; first match wins.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeServiceList
	ShapeNewService
	ShapeSystemStatus
	ShapeServiceDetail
	ShapeTimeExtended
	ShapeSizeExtended
)

// String returns the shape tag used in digest log entries.
func (s Shape) String() string {
	switch s {
	case ShapeServiceList:
		return "service_list"
	case ShapeNewService:
		return "new_service"
	case ShapeSystemStatus:
		return "system_status"
	case ShapeServiceDetail:
		return "service_detail"
	case ShapeTimeExtended:
		return "time_extended"
	case ShapeSizeExtended:
		return "size_extended"
	default:
		return "unknown"
	}
}

// Classify maps a decoded payload onto one of the recognized shapes.
func Classify(data any) Shape {
	m, ok := data.(map[string]any)
	if !ok {
		return ShapeUnknown
	}

	if _, ok := m["list"].([]any); ok {
		return ShapeServiceList
	}
	if _, ok := m["tak_links"].([]any); ok && truthy(m["gig"]) && truthy(m["day"]) {
		return ShapeNewService
	}
	if _, ok := m["balance"]; ok {
		if _, ok := m["count_services"]; ok {
			return ShapeSystemStatus
		}
	}
	if truthy(m["username"]) && m["latest_info"] != nil {
		return ShapeServiceDetail
	}
	if truthy(m["new_exp"]) && truthy(m["day_added"]) {
		return ShapeTimeExtended
	}
	if truthy(m["new_size"]) && truthy(m["gig_added"]) {
		return ShapeSizeExtended
	}
	return ShapeUnknown
}
