package api

// PlayersResponse is the body of /api/players. Counts are strings, as the
// bundled web page expects.
type PlayersResponse struct {
	PlayerCount    string   `json:"playerCount"`
	PlayerCountMax string   `json:"playerCountMax"`
	Players        []string `json:"player"`
}

// ConsoleResponse is the decoded shape of /api/console. The handler writes
// the object itself to keep newest-first order.
type ConsoleResponse struct {
	Chat map[string]string `json:"chat"`
}
