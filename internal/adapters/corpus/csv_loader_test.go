package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/training"
)

func TestCSVLoader_Load(t *testing.T) {
	data := "Message ID,Subject,Message,Spam/Ham,Date\n" +
		"0,christmas tree farm pictures,,ham,1999-12-10\n" +
		"1,\"vastar resources, inc.\",\"gary, production from the high island\nlarger block\",ham,1999-12-13\n" +
		"2,,\"Free money, click now\",spam,2005-07-01\n" +
		"3,short row\n"

	examples, err := NewCSVLoader(nil).Load(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, examples, 4)

	assert.Equal(t, training.Example{Subject: "christmas tree farm pictures", Label: "ham"}, examples[0])
	assert.Equal(t, "vastar resources, inc.", examples[1].Subject)
	assert.Equal(t, "gary, production from the high island\nlarger block", examples[1].Message)
	assert.Equal(t, "", examples[2].Subject)
	assert.Equal(t, "spam", examples[2].Label)
	assert.Equal(t, training.Example{Subject: "short row"}, examples[3])
}

func TestCSVLoader_HeaderCaseInsensitive(t *testing.T) {
	data := "\ufeffSUBJECT, message ,spam/HAM\nhi,there,Spam\n"

	examples, err := NewCSVLoader(nil).Load(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []training.Example{{Subject: "hi", Message: "there", Label: "Spam"}}, examples)
}

func TestCSVLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty file", "", core.ErrEmptyCorpus},
		{"header only", "Subject,Message,Spam/Ham\n", core.ErrEmptyCorpus},
		{"no label column", "Subject,Message\nhello,world\n", core.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVLoader(nil).Load(strings.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCSVLoader_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	require.NoError(t, os.WriteFile(path, []byte("Subject,Message,Spam/Ham\na,b,ham\nc,d,spam\n"), 0o644))

	examples, err := NewCSVLoader(nil).LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, examples, 2)

	_, err = NewCSVLoader(nil).LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
