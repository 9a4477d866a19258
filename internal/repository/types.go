package repository

// HandoffListFilter 查询结账交接记录的过滤条件
type HandoffListFilter struct {
	SessionID string
	Status    string
	Page      int
	PageSize  int
}
