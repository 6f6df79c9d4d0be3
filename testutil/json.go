package testutil

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func JSONString(s string) datatypes.JSON {
	b, _ := json.Marshal(s)
	return datatypes.JSON(b)
}

func JSONValue(v any) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}
