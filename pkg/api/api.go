// Package api defines the request and response messages of the tripsplit.v1
// Connect services. Money travels as decimal strings with two fractional digits
// ("12.34"), never as floats.
package api

// User is a registered account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Group is a trip and its roster of member emails.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Destination string   `json:"destination,omitempty"`
	StartDate   int64    `json:"start_date,omitempty"`
	EndDate     int64    `json:"end_date,omitempty"`
	Members     []string `json:"members"`
	CreatedBy   string   `json:"created_by"`
	CreatedAt   int64    `json:"created_at"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination,omitempty"`
	StartDate   int64  `json:"start_date,omitempty"`
	EndDate     int64  `json:"end_date,omitempty"`
	// Members are invited in addition to the caller, who always joins.
	Members []string `json:"members,omitempty"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMemberRequest struct {
	GroupID string   `json:"group_id"`
	Members []string `json:"members"`
}

type AddMemberResponse struct {
	Group *Group `json:"group"`
}

// Expense is one live entry of a group's expense log.
type Expense struct {
	ID          string   `json:"id"`
	GroupID     string   `json:"group_id"`
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	Payer       string   `json:"payer"`
	AssignedTo  []string `json:"assigned_to"`
	CreatedBy   string   `json:"created_by"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
	Version     int64    `json:"version"`
}

type AddExpenseRequest struct {
	GroupID     string `json:"group_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	// Payer defaults to the caller.
	Payer string `json:"payer,omitempty"`
	// AssignedTo defaults to every current member.
	AssignedTo []string `json:"assigned_to,omitempty"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type UpdateExpenseRequest struct {
	ExpenseID   string   `json:"expense_id"`
	Version     int64    `json:"version"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	Payer       string   `json:"payer,omitempty"`
	AssignedTo  []string `json:"assigned_to,omitempty"`
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
	Version   int64  `json:"version"`
}

type DeleteExpenseResponse struct{}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

// Balance is one member's position in a group.
type Balance struct {
	Member string `json:"member"`
	Paid   string `json:"paid"`
	Owed   string `json:"owed"`
	Net    string `json:"net"`
}

// Settlement is a suggested transfer from a debtor to a creditor.
type Settlement struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type GetBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetBalancesResponse struct {
	Balances    []*Balance    `json:"balances"`
	Settlements []*Settlement `json:"settlements"`
	// Warnings lists data-quality problems found in the stored expenses.
	Warnings []string `json:"warnings,omitempty"`
}

type RecordTransferRequest struct {
	GroupID string `json:"group_id"`
	// From defaults to the caller.
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type RecordTransferResponse struct {
	Expense *Expense `json:"expense"`
}
