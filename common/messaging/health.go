package messaging

// BrokerStatus is the broker connection state reported by readiness
// endpoints.
type BrokerStatus struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// CheckBroker inspects a client's connection. A nil client means the broker
// is disabled for this deployment, which is not an error.
func CheckBroker(client Client) BrokerStatus {
	if client == nil {
		return BrokerStatus{}
	}
	s := BrokerStatus{Enabled: true, Connected: client.IsConnected()}
	if !s.Connected {
		s.Error = "not connected to message broker"
	}
	return s
}
