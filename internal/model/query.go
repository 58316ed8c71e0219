package model

// QueryStatus is the lifecycle of one cached remote query
type QueryStatus int

const (
	QueryUninitialized QueryStatus = iota
	QueryPending
	QueryFulfilled
	QueryRejected
)

func (s QueryStatus) String() string {
	switch s {
	case QueryPending:
		return "pending"
	case QueryFulfilled:
		return "fulfilled"
	case QueryRejected:
		return "rejected"
	}
	return "uninitialized"
}

// IsLoading mirrors the loading flag views render a skeleton for
func (s QueryStatus) IsLoading() bool {
	return s == QueryPending
}

// IsError mirrors the error flag views render a retry message for
func (s QueryStatus) IsError() bool {
	return s == QueryRejected
}
