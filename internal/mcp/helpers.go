package mcpserver

import "encoding/json"

func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}
