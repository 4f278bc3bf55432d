package model

import (
	"context"
	"testing"

	"github.com/crudkit/sampleapi/internal/currentuser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func txWith(ctx context.Context) *gorm.DB {
	return &gorm.DB{Statement: &gorm.Statement{Context: ctx}}
}

func asUser(id uint) context.Context {
	return currentuser.With(context.Background(), currentuser.Principal{ID: id, Authenticated: true})
}

func TestStampFirstWriterKeepsCreatedBy(t *testing.T) {
	s := &Sample{Name: "x"}

	require.NoError(t, s.BeforeSave(txWith(asUser(1))))
	require.NotNil(t, s.CreatedByID)
	require.NotNil(t, s.UpdatedByID)
	assert.Equal(t, uint(1), *s.CreatedByID)
	assert.Equal(t, uint(1), *s.UpdatedByID)

	require.NoError(t, s.BeforeSave(txWith(asUser(2))))
	assert.Equal(t, uint(1), *s.CreatedByID)
	assert.Equal(t, uint(2), *s.UpdatedByID)
}

func TestStampWithoutPrincipalLeavesFieldsUnset(t *testing.T) {
	s := &Sample{Name: "x"}
	require.NoError(t, s.BeforeSave(txWith(context.Background())))
	assert.Nil(t, s.CreatedByID)
	assert.Nil(t, s.UpdatedByID)
}

func TestStampAnonymousIsIgnored(t *testing.T) {
	s := &Sample{Name: "x"}
	ctx := currentuser.With(context.Background(), currentuser.Anonymous())
	require.NoError(t, s.BeforeSave(txWith(ctx)))
	assert.Nil(t, s.CreatedByID)
	assert.Nil(t, s.UpdatedByID)
}

func TestStampAnonymousKeepsExistingAttribution(t *testing.T) {
	s := &Sample{Name: "x"}
	Stamp(asUser(3), &s.Auditable)
	Stamp(context.Background(), &s.Auditable)
	assert.Equal(t, uint(3), *s.CreatedByID)
	assert.Equal(t, uint(3), *s.UpdatedByID)
}

func TestStampFieldsAreIndependentCopies(t *testing.T) {
	s := &Sample{Name: "x"}
	Stamp(asUser(4), &s.Auditable)
	*s.UpdatedByID = 9
	assert.Equal(t, uint(4), *s.CreatedByID)
}

func TestAPILogRejectsUpdates(t *testing.T) {
	l := &APILog{Method: "GET"}
	assert.ErrorIs(t, l.BeforeUpdate(txWith(context.Background())), ErrAPILogImmutable)
}

func TestAPILogIsStampedOnCreate(t *testing.T) {
	l := &APILog{Method: "GET"}
	require.NoError(t, l.BeforeSave(txWith(asUser(5))))
	require.NotNil(t, l.CreatedByID)
	assert.Equal(t, uint(5), *l.CreatedByID)
}

func TestUserPrincipal(t *testing.T) {
	u := &User{ID: 3, Username: "bob", IsStaff: true, IsActive: true}
	p := u.Principal()
	assert.True(t, p.IsAuthenticated())
	assert.True(t, p.IsStaff)
	assert.Equal(t, "bob", p.Username)
}
