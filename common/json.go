package common

import jsoniter "github.com/json-iterator/go"

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	jsonSafe = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
)

func JsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func JsonMarshalToString(v interface{}) (string, error) {
	return json.MarshalToString(v)
}

// JsonMarshalToStringSafe sorts map keys so equal payloads produce equal strings.
func JsonMarshalToStringSafe(v interface{}) (string, error) {
	return jsonSafe.MarshalToString(v)
}

func JsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
