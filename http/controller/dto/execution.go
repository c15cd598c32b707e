package dto

type ExecuteRequestDTO struct {
	Playbooks []string `json:"playbooks"`
	NodeIDs   []uint   `json:"node_ids"`
	GroupIDs  []uint   `json:"group_ids"`
}

type ExecuteResponseDTO struct {
	Message     string `json:"message"`
	ExecutionID uint   `json:"execution_id"`
}

type PingRequestDTO struct {
	NodeIDs []uint `json:"node_ids"`
}
