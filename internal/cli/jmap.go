package cli

import (
	"encoding/json"
	"fmt"
)

// JMap is a zone rendered for command output, either as a JSON document or
// as just its name
type JMap map[string]interface{}

// Name is the zonename the plain output form prints
func (j JMap) Name() string {
	if name, ok := j["zonename"]; ok {
		return name.(string)
	}
	return ""
}

func (j JMap) String() string {
	buf, err := json.Marshal(&j)
	if err != nil {
		return ""
	}
	return string(buf)
}

// Print writes the JSON form when json is set, otherwise the zone name
func (j JMap) Print(json bool) {
	if json {
		fmt.Println(j)
	} else {
		fmt.Println(j.Name())
	}
}
