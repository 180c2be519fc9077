package core

// Content names the evidence object an account instance was observed in.
// Content objects themselves are owned by the ingestion pipeline; this
// module only stores the references.
type Content struct {
	ObjID           int64
	DataSourceObjID int64
}

// DataSource is an image, dump or logical file set added to the case,
// belonging to one physical or logical device.
type DataSource struct {
	ObjID    int64
	DeviceID string
	Name     string
}
