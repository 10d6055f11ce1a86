package domain

// Account is a trading account known to the account directory.
type Account struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func (a Account) String() string {
	return a.Name
}
