package models

// LoginRequest is the JSON payload of the cloud login call.
type LoginRequest struct {
	UUID        string `json:"uuid"`
	User        string `json:"user"`
	Pwd         string `json:"pwd"`
	OsType      string `json:"osType"`
	ProductCode string `json:"productCode"`
	AppCode     string `json:"appCode"`
}

// LoginResponse is the JSON body returned by the login endpoint. Ret is the
// vendor's result code; 0 means success.
type LoginResponse struct {
	Ret        int    `json:"ret"`
	Msg        string `json:"msg"`
	JSessionID string `json:"jsessionId"`
}

// ServerInfoResponse carries the two broker URLs returned by the server-info
// endpoint. JbalancerAddr is informational; InceptionAddr is the MQTT broker.
type ServerInfoResponse struct {
	JbalancerAddr string `json:"jbalancerAddr"`
	InceptionAddr string `json:"inceptionAddr"`
}

// DeviceListResponse is the JSON body of the device-list endpoint.
type DeviceListResponse struct {
	DeviceList []map[string]interface{} `json:"deviceList"`
}

// StatusRecord is one entry of an inbound status message: a single attribute
// of a device changed to Value.
type StatusRecord struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// UpdateRecord is one entry of an outbound update message published back to
// the cloud.
type UpdateRecord struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	DeviceID string `json:"dn"`
	Time     int64  `json:"time"`
}

// AttributeChange is a requested change to one device attribute. Multiple
// changes from a single caller action are coalesced into one published
// update message.
type AttributeChange struct {
	Type  string
	Value string
}
