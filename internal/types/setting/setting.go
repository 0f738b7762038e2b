package setting

type Setting struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Exists bool   `json:"exists"`
}

type UpdateSettingRequest struct {
	Value string `json:"value"`
}
