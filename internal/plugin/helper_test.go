package plugin_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkcrm/plugincore/internal/plugin"
	"github.com/thinkcrm/plugincore/internal/tracing"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

func newSetup(t *testing.T, ctx *xrm.ExecutionContext) (*plugin.Setup, *tracing.Recorder) {
	t.Helper()
	rec := &tracing.Recorder{}
	s, err := plugin.NewSetup(xrm.Services{Tracing: rec, Context: ctx}, plugin.SetupConfig{ClassName: "test.Handler"})
	require.NoError(t, err)
	return s, rec
}

func TestNewSetup_Malformed(t *testing.T) {
	rec := &tracing.Recorder{}
	cases := map[string]struct {
		sp   xrm.ServiceProvider
		want error
	}{
		"nil provider":     {sp: nil, want: plugin.ErrNilProvider},
		"nil tracing":      {sp: xrm.Services{Context: &xrm.ExecutionContext{}}, want: plugin.ErrNoTracing},
		"nil context":      {sp: xrm.Services{Tracing: rec}, want: plugin.ErrNoContext},
		"nil input params": {sp: xrm.Services{Tracing: rec, Context: &xrm.ExecutionContext{}}, want: plugin.ErrNoInputParameter},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := plugin.NewSetup(tc.sp, plugin.SetupConfig{})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewSetup_Accessors(t *testing.T) {
	ctx := &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{}}
	s, err := plugin.NewSetup(xrm.Services{Tracing: &tracing.Recorder{}, Context: ctx},
		plugin.SetupConfig{ClassName: "c", Unsecure: "u", Secure: "s"})
	require.NoError(t, err)

	assert.Same(t, ctx, s.Context())
	assert.Equal(t, "c", s.ClassName())
	assert.Equal(t, "u", s.UnsecureConfig())
	assert.Equal(t, "s", s.SecureConfig())
	assert.Equal(t, "c", s.Logging().Caller())
	assert.NotNil(t, s.Helper())
}

func TestTargetEntity_Present(t *testing.T) {
	target := xrm.NewEntity("account", uuid.New())
	s, _ := newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{"Target": target}})

	got, err := s.Helper().TargetEntity()
	require.NoError(t, err)
	assert.Same(t, target, got)
}

func TestTargetEntity_NeverDefaults(t *testing.T) {
	cases := map[string]xrm.ParameterCollection{
		"missing":        {},
		"reference":      {"Target": xrm.EntityReference{LogicalName: "account"}},
		"nil entity":     {"Target": (*xrm.Entity)(nil)},
		"string payload": {"Target": "account"},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			s, rec := newSetup(t, &xrm.ExecutionContext{InputParameters: params})

			got, err := s.Helper().TargetEntity()

			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, plugin.IsFailure(err))
			assert.Equal(t, plugin.UserErrorMessage, err.Error())
			assert.ErrorIs(t, err, plugin.ErrTargetNotFound)
			assert.True(t, rec.Contains("plugin.Helper|Error: InputParameters does not contain a Target"))
		})
	}
}

func TestTargetEntity_LogsNotApplicableWhenMissing(t *testing.T) {
	s, rec := newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{}})

	_, _ = s.Helper().TargetEntity()

	assert.True(t, rec.Contains("Contains: false / Type: (Not Applicable)"))
}

func TestTargetReference(t *testing.T) {
	ref := xrm.EntityReference{LogicalName: "contact", ID: uuid.New()}

	s, _ := newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{"Target": ref}})
	got, err := s.Helper().TargetReference()
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	s, _ = newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{"Target": &ref}})
	got, err = s.Helper().TargetReference()
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	s, rec := newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{"Target": xrm.NewEntity("contact", ref.ID)}})
	_, err = s.Helper().TargetReference()
	assert.True(t, plugin.IsFailure(err))
	assert.True(t, rec.Contains("Target is not EntityReference"))
}

func TestImage_SkipOnCreateNeverFails(t *testing.T) {
	for _, images := range []xrm.EntityImageCollection{nil, {"pre": xrm.NewEntity("account", uuid.New())}} {
		s, rec := newSetup(t, &xrm.ExecutionContext{
			MessageName:     "Create",
			InputParameters: xrm.ParameterCollection{},
			PreEntityImages: images,
		})

		img, err := s.Helper().Image("pre", xrm.PreImage, true)

		require.NoError(t, err)
		assert.Nil(t, img)
		assert.True(t, rec.Contains("skipOnCreate"))
	}
}

func TestImage_SkipOnCreateIgnoredForOtherMessages(t *testing.T) {
	s, _ := newSetup(t, &xrm.ExecutionContext{MessageName: "Update", InputParameters: xrm.ParameterCollection{}})

	_, err := s.Helper().Image("pre", xrm.PreImage, true)

	assert.True(t, plugin.IsFailure(err))
}

func TestImage_MissingAlwaysFails(t *testing.T) {
	for _, msg := range []string{"Create", "Update", "Delete", ""} {
		s, rec := newSetup(t, &xrm.ExecutionContext{
			MessageName:      msg,
			InputParameters:  xrm.ParameterCollection{},
			PostEntityImages: xrm.EntityImageCollection{"other": xrm.NewEntity("account", uuid.New())},
		})

		img, err := s.Helper().Image("post", xrm.PostImage, false)

		assert.Nil(t, img)
		require.Error(t, err, msg)
		assert.ErrorIs(t, err, plugin.ErrImageNotFound)
		assert.True(t, rec.Contains("Error: PostEntityImages does not contain post"))
	}
}

func TestImage_Found(t *testing.T) {
	pre := xrm.NewEntity("account", uuid.New())
	s, rec := newSetup(t, &xrm.ExecutionContext{
		MessageName:     "Update",
		InputParameters: xrm.ParameterCollection{},
		PreEntityImages: xrm.EntityImageCollection{"pre": pre},
	})

	img, err := s.Helper().Image("pre", xrm.PreImage, false)

	require.NoError(t, err)
	assert.Same(t, pre, img)
	assert.True(t, rec.Contains("Found PreImage named pre"))
}

func TestImage_NullEntryCountsAsFound(t *testing.T) {
	s, rec := newSetup(t, &xrm.ExecutionContext{
		MessageName:     "Update",
		InputParameters: xrm.ParameterCollection{},
		PreEntityImages: xrm.EntityImageCollection{"pre": nil},
	})

	img, err := s.Helper().Image("pre", xrm.PreImage, false)
	require.NoError(t, err)
	assert.Nil(t, img)
	assert.True(t, rec.Contains("Found PreImage named pre"))

	view, err := plugin.ImageAs[contactView](s.Helper(), "pre", xrm.PreImage, false)
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestNewSetup_NilImageMapsReadAsEmpty(t *testing.T) {
	ctx := &xrm.ExecutionContext{MessageName: "Update", InputParameters: xrm.ParameterCollection{}}
	s, err := plugin.NewSetup(xrm.Services{Tracing: &tracing.Recorder{}, Context: ctx}, plugin.SetupConfig{})
	require.NoError(t, err)

	for _, kind := range []xrm.ImageKind{xrm.PreImage, xrm.PostImage} {
		img, err := s.Helper().Image("any", kind, false)
		assert.Nil(t, img)
		assert.True(t, plugin.IsFailure(err), kind.String())
		assert.ErrorIs(t, err, plugin.ErrImageNotFound)
	}
}

type contactView struct {
	ID       uuid.UUID `xrm:"id"`
	FullName string    `xrm:"fullname"`
}

func TestTargetEntityAs(t *testing.T) {
	target := xrm.NewEntity("contact", uuid.New())
	target.Set("fullname", "Ada Lovelace")
	s, _ := newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{"Target": target}})

	got, err := plugin.TargetEntityAs[contactView](s.Helper())

	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)
	assert.Equal(t, "Ada Lovelace", got.FullName)
}

func TestTargetEntityAs_ProjectionFailureIsWrapped(t *testing.T) {
	target := xrm.NewEntity("contact", uuid.New())
	target.Set("fullname", map[string]any{"first": "Ada"})
	s, rec := newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{"Target": target}})

	_, err := plugin.TargetEntityAs[contactView](s.Helper())

	require.Error(t, err)
	assert.Equal(t, plugin.UserErrorMessage, err.Error())
	assert.True(t, rec.Contains("Error Detail"))
}

func TestImageAs_SkippedStaysNil(t *testing.T) {
	s, _ := newSetup(t, &xrm.ExecutionContext{MessageName: "Create", InputParameters: xrm.ParameterCollection{}})

	got, err := plugin.ImageAs[contactView](s.Helper(), "pre", xrm.PreImage, true)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHelper_FindInParentChain(t *testing.T) {
	parent := &xrm.ExecutionContext{SharedVariables: xrm.ParameterCollection{"k": "v"}}
	s, _ := newSetup(t, &xrm.ExecutionContext{InputParameters: xrm.ParameterCollection{}, ParentContext: parent})

	v, ok := s.Helper().FindInParentChain(xrm.SharedVariables, "k")

	require.True(t, ok)
	assert.Equal(t, "v", v)
}
