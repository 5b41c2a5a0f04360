package businessflow

import (
	"context"
	"strings"
	"testing"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/utils"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactFlow_CRUD(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	flow := NewContactFlow(env.Contacts, env.DB.DB)

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)
	other, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)

	c, err := flow.CreateContact(ctx, user.ID, &dto.CreateContactRequest{Name: " Meera Iyer ", Email: "MEERA@example.com", Phone: "+91 90000 11111"})
	require.NoError(t, err)
	assert.Equal(t, "Meera Iyer", c.Name)
	assert.Equal(t, "meera@example.com", c.Email)

	_, err = flow.CreateContact(ctx, user.ID, &dto.CreateContactRequest{Name: " "})
	assert.ErrorIs(t, err, ErrNameRequired)

	updated, err := flow.UpdateContact(ctx, user.ID, c.ID, &dto.UpdateContactRequest{Notes: utils.ToPtr("met at expo")})
	require.NoError(t, err)
	assert.Equal(t, "met at expo", updated.Notes)
	assert.Equal(t, "+91 90000 11111", updated.Phone)

	_, err = flow.UpdateContact(ctx, other.ID, c.ID, &dto.UpdateContactRequest{Notes: utils.ToPtr("x")})
	assert.ErrorIs(t, err, ErrContactNotFound)

	list, err := flow.ListContacts(ctx, other.ID, &dto.ListContactsRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Contacts)

	list, err = flow.ListContacts(ctx, user.ID, &dto.ListContactsRequest{Search: "meera"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, utils.DefaultContactPageLimit, list.Limit)

	assert.ErrorIs(t, flow.DeleteContact(ctx, other.ID, c.ID), ErrContactNotFound)
	require.NoError(t, flow.DeleteContact(ctx, user.ID, c.ID))
	assert.ErrorIs(t, flow.DeleteContact(ctx, user.ID, c.ID), ErrContactNotFound)
}

func TestContactFlow_ImportAndExport(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	flow := NewContactFlow(env.Contacts, env.DB.DB)

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)

	_, _, err = flow.ExportCSV(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNothingToExport)

	input := "NAME,email,phone,notes,ignored\n" +
		"Meera Iyer,Meera@Example.com,+91 90000 11111,met at expo,zzz\n" +
		",orphan@example.com,,,\n"
	resp, err := flow.ImportCSV(ctx, user.ID, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Imported)
	assert.Equal(t, 1, resp.Skipped)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 3, resp.Errors[0].Line)

	filename, data, err := flow.ExportCSV(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "contacts.csv", filename)

	g := goldie.New(t, goldie.WithFixtureDir("testdata"))
	g.Assert(t, "contact_export", data)
}
