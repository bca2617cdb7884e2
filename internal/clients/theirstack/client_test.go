package theirstack

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const apiURL = "https://api.theirstack.com/v1/jobs/search"

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func getSearchResponseMock() (*http.Response, error) {
	file, err := os.ReadFile("testdata/search_response.json")

	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBuffer(file)),
	}, err
}

func decodeBody(req *http.Request) map[string]any {
	reader, err := req.GetBody()
	if err != nil {
		return nil
	}
	body, _ := io.ReadAll(reader)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)
	return payload
}

func Test_NewClient_WithoutKey_ShouldFail(t *testing.T) {
	_, err := NewClient(apiURL, "", time.Second)

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func Test_TheirStackClient_Search_ShouldBeSuccessful(t *testing.T) {

	assert := assert.New(t)

	var payload map[string]any
	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		if req.Method != http.MethodPost || req.URL.String() != apiURL {
			return false
		}
		if req.Header.Get("Authorization") != "Bearer secret" {
			return false
		}
		payload = decodeBody(req)
		return true
	})).Return(getSearchResponseMock())

	client, err := NewClient(apiURL, "secret", time.Second)
	require.NoError(t, err)
	client.SetHTTPClient(mockClient)

	response, err := client.Search(context.Background(), SearchRequest{
		PostedAtGte:         "2025-03-01",
		JobCountryCodeOr:    []string{"LU"},
		PostedAtMaxAgeDays:  7,
		JobTitleOr:          []string{"data scientist"},
		Limit:               1,
		BlurCompanyData:     true,
		IncludeTotalResults: true,
	})
	require.NoError(t, err)

	assert.Equal("2025-03-01", payload["posted_at_gte"])
	assert.Equal(float64(1), payload["limit"])
	assert.Equal(true, payload["include_total_results"])
	assert.NotContains(payload, "page")
	assert.NotContains(payload, "job_id_not")

	assert.Equal(2, response.TotalResults())
	assert.NotEmpty(response.Raw)
	require.Len(t, response.Data, 2)

	first := response.Data[0]
	assert.Equal("18234511", first.ID.String())
	assert.Equal("https://careers.example.lu/jobs/ds-senior", first.JobURL())
	assert.Equal("Example Bank", first.CompanyName())
	assert.Equal([]string{"python", "prophet", "statsmodels"}, first.TechnologySlugs)

	second := response.Data[1]
	assert.Equal("18234599", second.ID.String())
	assert.Equal("https://jobs.example.com/platform", second.JobURL())
	assert.Equal("Blurred Co", second.CompanyName())
	assert.True(*second.Remote)
}

func Test_SearchResponse_TotalResults_ShouldFallBackToMeta(t *testing.T) {
	var response SearchResponse
	require.NoError(t, json.Unmarshal([]byte(`{"meta":{"total":5},"data":[]}`), &response))

	assert.Equal(t, 5, response.TotalResults())
	assert.Equal(t, 0, SearchResponse{}.TotalResults())
}

func Test_TheirStackClient_Search_Unauthorized_ShouldFail(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(&http.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       io.NopCloser(bytes.NewBufferString(`{"error":"invalid token"}`)),
	}, nil)

	client, err := NewClient(apiURL, "wrong", time.Second)
	require.NoError(t, err)
	client.SetHTTPClient(mockClient)

	_, err = client.Search(context.Background(), SearchRequest{Limit: 1})

	assert.ErrorContains(t, err, "status 401")
	mockClient.AssertNumberOfCalls(t, "Do", 1)
}
