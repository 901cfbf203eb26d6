package misc

type PagedBody struct {
	List  interface{} `json:"data"`
	Total uint64      `json:"total"`
}
