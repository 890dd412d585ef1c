package receiving

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func createTestLine(orderQty, receivedToDate int) OrderLine {
	return OrderLine{
		LineID:         uuid.New(),
		OrderID:        uuid.New(),
		PartID:         uuid.New(),
		PartCode:       "BRK-100",
		Description:    "Brake pads",
		OrderQty:       orderQty,
		UnitCost:       decimal.NewFromFloat(12.50),
		ReceivedToDate: receivedToDate,
	}
}

func TestOrderLine_Outstanding(t *testing.T) {
	tests := []struct {
		name     string
		ordered  int
		received int
		expected int
	}{
		{"nothing received", 10, 0, 10},
		{"partially received", 10, 4, 6},
		{"fully received", 10, 10, 0},
		{"over received floors at zero", 10, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := createTestLine(tt.ordered, tt.received)
			assert.Equal(t, tt.expected, line.Outstanding())
			assert.Equal(t, tt.expected == 0, line.IsFullyReceived())
		})
	}
}

func TestOrderLine_StartSession(t *testing.T) {
	line := createTestLine(10, 3)
	line.Received = 5
	line.Returned = 1
	line.Reason = "dented"

	started := line.StartSession()

	assert.Equal(t, 7, started.OutstandingBase)
	assert.Zero(t, started.Received)
	assert.Zero(t, started.Returned)
	assert.Empty(t, started.Reason)
	assert.Equal(t, 5, line.Received, "original line is unchanged")
}

func TestOrderLine_ReceivedValue(t *testing.T) {
	line := createTestLine(10, 0)
	line.Received = 4
	assert.True(t, decimal.NewFromInt(50).Equal(line.ReceivedValue()))
}

func TestOrderLine_Label(t *testing.T) {
	line := createTestLine(1, 0)
	assert.Equal(t, "BRK-100", line.Label())

	line.PartCode = ""
	assert.Equal(t, line.PartID.String(), line.Label())
}

func TestAllReceived(t *testing.T) {
	assert.False(t, AllReceived(nil))
	assert.True(t, AllReceived([]OrderLine{createTestLine(5, 5), createTestLine(2, 3)}))
	assert.False(t, AllReceived([]OrderLine{createTestLine(5, 5), createTestLine(2, 1)}))
}

func TestPart_Receive(t *testing.T) {
	part := &Part{ID: uuid.New(), QuantityOnHand: 3, QuantityOnOrder: 2}

	part.Receive(5)

	assert.Equal(t, 8, part.QuantityOnHand)
	assert.Equal(t, -3, part.QuantityOnOrder, "on-order is not floored on receipt")
}

func TestPart_ReleaseOnOrder(t *testing.T) {
	tests := []struct {
		name          string
		onOrder       int
		release       int
		expectOnOrder int
		expectRelease int
	}{
		{"partial", 10, 4, 6, 4},
		{"floors at zero", 3, 5, 0, 3},
		{"zero quantity", 3, 0, 3, 0},
		{"negative on-order lifted to zero", -2, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part := &Part{QuantityOnOrder: tt.onOrder}
			released := part.ReleaseOnOrder(tt.release)
			assert.Equal(t, tt.expectOnOrder, part.QuantityOnOrder)
			assert.Equal(t, tt.expectRelease, released)
		})
	}
}
