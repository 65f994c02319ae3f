package api

import "context"

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks the current token and returns the user it belongs to.
func (c *Client) Verify(ctx context.Context) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.get(ctx, "/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var out User
	if err := c.put(ctx, "/auth/profile", upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes token on the server. An empty token falls back to the
// client's token source.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token != "" {
		ctx = withToken(ctx, token)
	}
	return c.post(ctx, "/auth/logout", nil, nil, nil)
}
