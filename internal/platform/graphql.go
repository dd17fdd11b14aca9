package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/pelocoach/internal/errors"
)

// StackEntry is one class queued in the user's playlist stack.
type StackEntry struct {
	JoinToken string
	Title     string
}

const addClassToStackMutation = `mutation AddClassToStack($input: AddClassToStackInput!) {
  addClassToStack(input: $input) {
    __typename
    ... on StackResponseSuccess {
      numClasses
    }
  }
}`

const modifyStackMutation = `mutation ModifyStack($input: ModifyStackInput!) {
  modifyStack(input: $input) {
    __typename
    ... on StackResponseSuccess {
      numClasses
    }
  }
}`

const viewUserStackQuery = `query ViewUserStack {
  viewUserStack {
    __typename
    ... on StackResponseSuccess {
      userStack {
        stackedClassList {
          pelotonClass {
            joinToken
            title
          }
        }
      }
    }
  }
}`

// AddToStack queues a class on the user's stack by join token. The platform
// reports failures inside a 200 response, so success is determined by the
// payload's typename, not the status code.
func (c *Client) AddToStack(ctx context.Context, sess Session, joinToken string) error {
	variables := map[string]any{
		"input": map[string]any{"pelotonClassId": joinToken},
	}
	resp, err := c.graphql(ctx, sess, "AddClassToStack", addClassToStackMutation, variables)
	if err != nil {
		return errors.Wrap(err, "add class to stack", slog.String("join_token", joinToken))
	}
	if typename := resp.Data.AddClassToStack.Typename; typename != stackResponseSuccess {
		return errors.Wrap(ErrPlatform, "stack mutation rejected",
			slog.String("typename", typename), slog.String("join_token", joinToken))
	}
	return nil
}

// ClearStack empties the user's stack.
func (c *Client) ClearStack(ctx context.Context, sess Session) error {
	variables := map[string]any{
		"input": map[string]any{"pelotonClassIdList": []string{}},
	}
	resp, err := c.graphql(ctx, sess, "ModifyStack", modifyStackMutation, variables)
	if err != nil {
		return errors.Wrap(err, "clear stack")
	}
	if typename := resp.Data.ModifyStack.Typename; typename != stackResponseSuccess {
		return errors.Wrap(ErrPlatform, "stack mutation rejected", slog.String("typename", typename))
	}
	return nil
}

// ViewStack returns the classes currently queued on the user's stack.
func (c *Client) ViewStack(ctx context.Context, sess Session) ([]StackEntry, error) {
	resp, err := c.graphql(ctx, sess, "ViewUserStack", viewUserStackQuery, nil)
	if err != nil {
		return nil, errors.Wrap(err, "view stack")
	}
	if typename := resp.Data.ViewUserStack.Typename; typename != stackResponseSuccess {
		return nil, errors.Wrap(ErrPlatform, "stack query rejected", slog.String("typename", typename))
	}

	var entries []StackEntry
	for _, stacked := range resp.Data.ViewUserStack.UserStack.StackedClassList {
		entries = append(entries, StackEntry{
			JoinToken: stacked.PelotonClass.JoinToken,
			Title:     stacked.PelotonClass.Title,
		})
	}
	return entries, nil
}

const stackResponseSuccess = "StackResponseSuccess"

type stackResult struct {
	Typename  string `json:"__typename"`
	UserStack struct {
		StackedClassList []struct {
			PelotonClass struct {
				JoinToken string `json:"joinToken"`
				Title     string `json:"title"`
			} `json:"pelotonClass"`
		} `json:"stackedClassList"`
	} `json:"userStack"`
}

type graphqlResponse struct {
	Data struct {
		AddClassToStack stackResult `json:"addClassToStack"`
		ModifyStack     stackResult `json:"modifyStack"`
		ViewUserStack   stackResult `json:"viewUserStack"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) graphql(
	ctx context.Context,
	sess Session,
	operationName string,
	query string,
	variables map[string]any,
) (graphqlResponse, error) {
	payload := map[string]any{
		"operationName": operationName,
		"query":         query,
	}
	if variables != nil {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return graphqlResponse{}, errors.Wrap(err, "marshal graphql payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return graphqlResponse{}, errors.Wrap(err, "build graphql request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Peloton-Platform", "web")
	if sess.Token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sess.Token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return graphqlResponse{}, errors.Join(ErrPlatform, err)
	}
	defer closeBody(resp.Body, c.logger)

	if resp.StatusCode != http.StatusOK {
		return graphqlResponse{}, errors.Wrap(ErrPlatform, "unexpected status",
			slog.Int("status", resp.StatusCode))
	}

	var decoded graphqlResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return graphqlResponse{}, errors.Wrap(errors.Join(ErrPlatform, err), "decode graphql response")
	}
	if len(decoded.Errors) > 0 {
		return graphqlResponse{}, errors.Wrap(ErrPlatform, "graphql error",
			slog.String("message", decoded.Errors[0].Message))
	}
	return decoded, nil
}
